package providers_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/atncomplete/pkg/completion"
	"github.com/walteh/atncomplete/pkg/completion/providers"
)

func texts(items []completion.Suggestion) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.DisplayText)
	}
	return out
}

const sampleYAML = `
user:
  name: ada
  age: 36
  address: &addr
    city: london
    zip: "N1"
  tags: [a, b]
orders:
  - id: 1
    total: 9.5
  - id: 2
billing: *addr
enabled: true
nothing: null
`

func TestSampleProvider(t *testing.T) {
	p, err := providers.NewSampleProvider("sample.yaml", []byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "sample.yaml", p.Name())

	tests := []struct {
		name    string
		path    []string
		want    []completion.Suggestion
		wantErr bool
	}{
		{
			name: "root keys keep document order",
			path: nil,
			want: []completion.Suggestion{
				{DisplayText: "user", Kind: completion.KindDynamicField, Detail: "object"},
				{DisplayText: "orders", Kind: completion.KindDynamicField, Detail: "array"},
				{DisplayText: "billing", Kind: completion.KindDynamicField, Detail: "object"},
				{DisplayText: "enabled", Kind: completion.KindDynamicField, Detail: "bool"},
				{DisplayText: "nothing", Kind: completion.KindDynamicField, Detail: "null"},
			},
		},
		{
			name: "nested object",
			path: []string{"user"},
			want: []completion.Suggestion{
				{DisplayText: "name", Kind: completion.KindDynamicField, Detail: "string"},
				{DisplayText: "age", Kind: completion.KindDynamicField, Detail: "number"},
				{DisplayText: "address", Kind: completion.KindDynamicField, Detail: "object"},
				{DisplayText: "tags", Kind: completion.KindDynamicField, Detail: "array"},
			},
		},
		{
			name: "sequence uses its first element",
			path: []string{"orders"},
			want: []completion.Suggestion{
				{DisplayText: "id", Kind: completion.KindDynamicField, Detail: "number"},
				{DisplayText: "total", Kind: completion.KindDynamicField, Detail: "number"},
			},
		},
		{
			name: "aliases are followed",
			path: []string{"billing"},
			want: []completion.Suggestion{
				{DisplayText: "city", Kind: completion.KindDynamicField, Detail: "string"},
				{DisplayText: "zip", Kind: completion.KindDynamicField, Detail: "string"},
			},
		},
		{
			name: "scalar has no fields",
			path: []string{"user", "name"},
			want: nil,
		},
		{
			name:    "unknown field",
			path:    []string{"user", "missing"},
			wantErr: true,
		},
		{
			name:    "descending through a scalar",
			path:    []string{"enabled", "x"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Suggest(context.Background(), tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSampleProvider_JSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "data/sample.json", []byte(`{"b": {"y": 1, "x": "s"}, "a": []}`), 0o644))

	p, err := providers.LoadSampleProvider(fs, "data/sample.json")
	require.NoError(t, err)

	got, err := p.Suggest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, texts(got))

	got, err = p.Suggest(context.Background(), []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x"}, texts(got))

	_, err = providers.LoadSampleProvider(fs, "data/missing.json")
	require.Error(t, err)

	_, err = providers.NewSampleProvider("bad", []byte("a: [1, 2"))
	require.Error(t, err)
}

const userProto = `syntax = "proto3";

package demo.v1;

import "google/protobuf/timestamp.proto";

message User {
  string name = 1;
  int32 age = 2;
  Address home_address = 3;
  repeated Address previous = 4;
  map<string, Address> labelled = 5;
  google.protobuf.Timestamp created_at = 6;
  Role role = 7;

  message Address {
    string city = 1;
    string zip = 2;
  }
}

enum Role {
  ROLE_UNSPECIFIED = 0;
  ROLE_ADMIN = 1;
}
`

func TestProtoProvider(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "demo/v1/user.proto", []byte(userProto), 0o644))

	ctx := context.Background()
	p, err := providers.NewProtoProvider(ctx, fs, "demo/v1/user.proto", "demo.v1.User")
	require.NoError(t, err)
	assert.Equal(t, "demo/v1/user.proto#demo.v1.User", p.Name())

	got, err := p.Suggest(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []completion.Suggestion{
		{DisplayText: "name", Kind: completion.KindDynamicField, Detail: "string"},
		{DisplayText: "age", Kind: completion.KindDynamicField, Detail: "int32"},
		{DisplayText: "home_address", Kind: completion.KindDynamicField, Detail: "demo.v1.User.Address"},
		{DisplayText: "previous", Kind: completion.KindDynamicField, Detail: "repeated demo.v1.User.Address"},
		{DisplayText: "labelled", Kind: completion.KindDynamicField, Detail: "map<string, demo.v1.User.Address>"},
		{DisplayText: "created_at", Kind: completion.KindDynamicField, Detail: "google.protobuf.Timestamp"},
		{DisplayText: "role", Kind: completion.KindDynamicField, Detail: "demo.v1.Role"},
	}, got)

	tests := []struct {
		name string
		path []string
		want []string
	}{
		{name: "message field", path: []string{"home_address"}, want: []string{"city", "zip"}},
		{name: "json name", path: []string{"homeAddress"}, want: []string{"city", "zip"}},
		{name: "repeated field", path: []string{"previous"}, want: []string{"city", "zip"}},
		{name: "map value", path: []string{"labelled"}, want: []string{"city", "zip"}},
		{name: "well known type", path: []string{"created_at"}, want: []string{"seconds", "nanos"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Suggest(ctx, tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, texts(got))
		})
	}

	_, err = p.Suggest(ctx, []string{"name", "x"})
	require.Error(t, err)
	_, err = p.Suggest(ctx, []string{"nope"})
	require.Error(t, err)
}

func TestProtoProvider_Errors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "user.proto", []byte(userProto), 0o644))
	require.NoError(t, afero.WriteFile(fs, "broken.proto", []byte("syntax = \"proto3\";\nmessage {"), 0o644))

	ctx := context.Background()

	_, err := providers.NewProtoProvider(ctx, fs, "user.proto", "demo.v1.Missing")
	require.Error(t, err)

	_, err = providers.NewProtoProvider(ctx, fs, "broken.proto", "X")
	require.Error(t, err)

	_, err = providers.NewProtoProvider(ctx, fs, "absent.proto", "X")
	require.Error(t, err)

	nested, err := providers.NewProtoProvider(ctx, fs, "user.proto", "demo.v1.User.Address")
	require.NoError(t, err)
	got, err := nested.Suggest(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "zip"}, texts(got))
}
