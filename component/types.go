package component

// ValueType is the semantic type of a component input or output.
type ValueType string

const (
	TypeText     ValueType = "text"
	TypeInt      ValueType = "int"
	TypeFloat    ValueType = "float"
	TypeBool     ValueType = "bool"
	TypeJSON     ValueType = "json"
	TypeFile     ValueType = "file"
	TypeImage    ValueType = "image"
	TypeList     ValueType = "list"
	TypeStream   ValueType = "stream"
	TypeAny      ValueType = "any"
	TypeTemplate ValueType = "template"
)

var knownTypes = map[ValueType]bool{
	TypeText:     true,
	TypeInt:      true,
	TypeFloat:    true,
	TypeBool:     true,
	TypeJSON:     true,
	TypeFile:     true,
	TypeImage:    true,
	TypeList:     true,
	TypeStream:   true,
	TypeAny:      true,
	TypeTemplate: true,
}

// Valid reports whether t is one of the known semantic types.
func (t ValueType) Valid() bool { return knownTypes[t] }

// IsFile reports whether values of this type are file references.
func (t ValueType) IsFile() bool { return t == TypeFile || t == TypeImage }
