package encoding

import (
	"reflect"

	uuid "github.com/satori/go.uuid"
	"github.com/ugorji/go/codec"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/xerrors"
)

// BSON binary subtypes with special handling.
const (
	bsonSubtypeGeneric byte = 0x0
	bsonSubtypeUUIDOld byte = 0x3
	bsonSubtypeUUID    byte = 0x4
)

// JSONExtensionOpts registers ExtInterface as the JSON form of ValueType.
type JSONExtensionOpts struct {
	ValueType    reflect.Type
	ExtInterface codec.InterfaceExt
}

// BsonCodecOpts registers Codec for ValueType in the registry used to unpack
// bson.Raw values.
type BsonCodecOpts struct {
	ValueType reflect.Type
	Codec     bsoncodec.ValueCodec
}

var defaultJSONExtensions = []*JSONExtensionOpts{
	{
		ValueType:    reflect.TypeOf(primitive.Binary{}),
		ExtInterface: fixtureBinaryExt{},
	},
}

var defaultBsonCodecs = []*BsonCodecOpts{
	{
		ValueType: reflect.TypeOf(uuid.UUID{}),
		Codec:     uuidCodec{},
	},
}

// Extensions are encode only. Logical JSON values are always decoded schemaless.
func panicUpdateExt(valueType string) {
	panic(xerrors.Errorf(
		"decoding into %s is not supported, decode to interface{} instead", valueType,
	))
}

// Writes primitive.Binary values as uuid strings for the uuid subtypes and base64
// strings for generic binary.
type fixtureBinaryExt struct{}

func (fixtureBinaryExt) ConvertExt(value interface{}) interface{} {
	var binary primitive.Binary
	switch typed := value.(type) {
	case primitive.Binary:
		binary = typed
	case *primitive.Binary:
		binary = *typed
	default:
		panic(xerrors.Errorf("expected primitive.Binary, got %T", value))
	}

	switch binary.Subtype {
	case bsonSubtypeUUIDOld, bsonSubtypeUUID:
		parsed, err := uuid.FromBytes(binary.Data)
		if err != nil {
			panic(xerrors.Errorf("invalid bson uuid: %w", err))
		}
		return parsed.String()
	case bsonSubtypeGeneric:
		return binary.Data
	}

	panic(xerrors.Errorf("unsupported bson binary subtype 0x%x", binary.Subtype))
}

func (fixtureBinaryExt) UpdateExt(dest interface{}, value interface{}) {
	panicUpdateExt("primitive.Binary")
}

// Writes bson.Raw documents as JSON objects, unpacked with registry.
type fixtureRawExt struct {
	registry *bsoncodec.Registry
}

func (ext fixtureRawExt) ConvertExt(value interface{}) interface{} {
	var raw bson.Raw
	switch typed := value.(type) {
	case bson.Raw:
		raw = typed
	case *bson.Raw:
		raw = *typed
	default:
		panic(xerrors.Errorf("expected bson.Raw, got %T", value))
	}

	document := make(map[string]interface{})
	if len(raw) == 0 {
		return document
	}

	if err := bson.UnmarshalWithRegistry(ext.registry, raw, &document); err != nil {
		panic(xerrors.Errorf("error unpacking bson document: %w", err))
	}
	return document
}

func (fixtureRawExt) UpdateExt(dest interface{}, value interface{}) {
	panicUpdateExt("bson.Raw")
}

// Stores uuid.UUID as subtype 0x3 binary.
type uuidCodec struct{}

func (uuidCodec) EncodeValue(
	_ bsoncodec.EncodeContext, writer bsonrw.ValueWriter, value reflect.Value,
) error {
	id, ok := value.Interface().(uuid.UUID)
	if !ok {
		return xerrors.Errorf("cannot encode %s as uuid", value.Type())
	}
	return writer.WriteBinaryWithSubtype(id.Bytes(), bsonSubtypeUUIDOld)
}

func (uuidCodec) DecodeValue(
	_ bsoncodec.DecodeContext, reader bsonrw.ValueReader, value reflect.Value,
) error {
	data, _, err := reader.ReadBinary()
	if err != nil {
		return xerrors.Errorf("error reading uuid binary: %w", err)
	}

	id, err := uuid.FromBytes(data)
	if err != nil {
		return xerrors.Errorf("error parsing uuid: %w", err)
	}

	value.Set(reflect.ValueOf(id))
	return nil
}
