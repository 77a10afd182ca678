/*
Package semtok classifies the tokens of a document for semantic highlighting.

Token Sources:
-------------

	  Text
	   |
	   v
	+-----------+   tokens    +------------+
	| Tokenizer | ----------> |   semtok   | ---> []Token
	+-----------+             +------------+
	                             ^      ^
	                   tree + scope      vocabulary classes
	                   (declarations,    (keyword, literal,
	                    references)       value)

Identifiers are classified through the scope index: a declaring occurrence
carries ModifierDeclaration, a use takes the type of the declaration it
resolves to, and a segment after a member token is a property.

Encode turns tokens into the relative five-integer form the language server
protocol sends, with UTF-16 columns.
*/
package semtok
