package providers

import (
	"context"
	"fmt"
	"io"

	"github.com/bufbuild/protocompile"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/atncomplete/pkg/completion"
	"gitlab.com/tozd/go/errors"
	"google.golang.org/protobuf/reflect/protoreflect"
)

var _ completion.Provider = (*ProtoProvider)(nil)

// ProtoProvider suggests the fields of a protobuf message. Paths descend
// through message-typed fields, including repeated and map values.
type ProtoProvider struct {
	name string
	root protoreflect.MessageDescriptor
}

// NewProtoProvider compiles file, read from fs, and roots suggestions at the
// fully qualified message name.
func NewProtoProvider(ctx context.Context, fs afero.Fs, file string, message string) (*ProtoProvider, error) {
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: func(path string) (io.ReadCloser, error) {
				return fs.Open(path)
			},
		}),
	}

	files, err := compiler.Compile(ctx, file)
	if err != nil {
		return nil, errors.Errorf("compiling %s: %w", file, err)
	}

	want := protoreflect.FullName(message)
	for _, f := range files {
		if md := findMessage(f.Messages(), want); md != nil {
			zerolog.Ctx(ctx).Debug().Str("file", file).Str("message", message).Int("fields", md.Fields().Len()).Msg("loaded proto schema")
			return &ProtoProvider{name: file + "#" + message, root: md}, nil
		}
	}
	return nil, errors.Errorf("message %s not found in %s", message, file)
}

func findMessage(msgs protoreflect.MessageDescriptors, name protoreflect.FullName) protoreflect.MessageDescriptor {
	for i := 0; i < msgs.Len(); i++ {
		md := msgs.Get(i)
		if md.FullName() == name {
			return md
		}
		if nested := findMessage(md.Messages(), name); nested != nil {
			return nested
		}
	}
	return nil
}

func (p *ProtoProvider) Name() string {
	return p.name
}

// Suggest lists the fields of the message at path in declaration order.
func (p *ProtoProvider) Suggest(ctx context.Context, path []string) ([]completion.Suggestion, error) {
	md := p.root
	for _, seg := range path {
		fd := lookupField(md, seg)
		if fd == nil {
			return nil, errors.Errorf("no field %s in %s", seg, md.FullName())
		}
		next := fieldMessage(fd)
		if next == nil {
			return nil, errors.Errorf("field %s of %s is not a message", seg, md.FullName())
		}
		md = next
	}

	fields := md.Fields()
	items := make([]completion.Suggestion, 0, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		items = append(items, completion.Suggestion{
			DisplayText: string(fd.Name()),
			Kind:        completion.KindDynamicField,
			Detail:      fieldType(fd),
		})
	}
	return items, nil
}

func lookupField(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	if fd := md.Fields().ByName(protoreflect.Name(name)); fd != nil {
		return fd
	}
	return md.Fields().ByJSONName(name)
}

func fieldMessage(fd protoreflect.FieldDescriptor) protoreflect.MessageDescriptor {
	if fd.IsMap() {
		fd = fd.MapValue()
	}
	return fd.Message()
}

func fieldType(fd protoreflect.FieldDescriptor) string {
	switch {
	case fd.IsMap():
		return fmt.Sprintf("map<%s, %s>", scalarOrMessage(fd.MapKey()), scalarOrMessage(fd.MapValue()))
	case fd.IsList():
		return "repeated " + scalarOrMessage(fd)
	}
	return scalarOrMessage(fd)
}

func scalarOrMessage(fd protoreflect.FieldDescriptor) string {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return string(fd.Message().FullName())
	case protoreflect.EnumKind:
		return string(fd.Enum().FullName())
	}
	return fd.Kind().String()
}
