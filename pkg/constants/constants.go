// Package constants holds the OCSF naming conventions and the primitive type
// table shared by the compiler and the emitted validators.
package constants

import "strings"

// CLIName is the name of the command line tool.
const CLIName = "ocsfc"

// DefaultConfigFile is read by compile when --config is not given.
const DefaultConfigFile = "ocsfc.yaml"

// WorkersEnvVar sets the default emitter concurrency when --workers is not given.
const WorkersEnvVar = "OCSFC_WORKERS"

// Corpus layout.
const (
	DictionaryFile = "dictionary.json"
	CategoriesFile = "categories.json"
	VersionFile    = "version.json"
	ObjectsDir     = "objects"
	EventsDir      = "events"
)

// Attribute naming conventions.
const (
	// PrimitiveSuffix marks a type token as a primitive (string_t, long_t, ...).
	PrimitiveSuffix = "_t"
	// IDSuffix marks the id half of a sibling pair.
	IDSuffix = "_id"
	// UIDSuffix marks the classification ids (class_uid, type_uid, ...), which
	// also pair with a label.
	UIDSuffix = "_uid"
	// IncludeDirective splices a profile into an attribute map. It is not resolved.
	IncludeDirective = "$include"
	// FreeFormObject is the object whose instances are open key/value maps (unmapped vendor data).
	FreeFormObject = "object"
	// AbstractPrefix marks descriptors that exist only to be extended.
	AbstractPrefix = "_"
)

// Classification.
const (
	CategoryUIDField = "category_uid"
	ClassUIDField    = "class_uid"
	ActivityIDField  = "activity_id"
	TypeUIDField     = "type_uid"

	// ClassUIDMultiplier combines category and local uid: class_uid = category_uid*1000 + uid.
	ClassUIDMultiplier = 1000
	// TypeUIDMultiplier combines class and activity: type_uid = class_uid*100 + activity_id.
	TypeUIDMultiplier = 100

	// UncategorizedCategory is the category of the base event; it has no categories.json entry.
	UncategorizedCategory    = "other"
	UncategorizedCategoryUID = 0
)

// Sentinel enum values.
const (
	UnknownID      int64 = 0
	OtherID        int64 = 99
	UnknownCaption       = "Unknown"
	OtherCaption         = "Other"
)

// BaseType is the structural type a primitive type token validates as.
type BaseType string

const (
	BaseString  BaseType = "string"
	BaseInteger BaseType = "integer"
	BaseLong    BaseType = "long"
	BaseFloat   BaseType = "float"
	BaseBoolean BaseType = "boolean"
	BaseJSON    BaseType = "json"
)

// PrimitiveTypes maps OCSF primitive type tokens to their base type. Derived
// tokens declared in the dictionary "types" section are resolved against this
// table through their declared base.
var PrimitiveTypes = map[string]BaseType{
	"boolean_t":      BaseBoolean,
	"bytestring_t":   BaseString,
	"datetime_t":     BaseString,
	"email_t":        BaseString,
	"file_hash_t":    BaseString,
	"file_name_t":    BaseString,
	"file_path_t":    BaseString,
	"float_t":        BaseFloat,
	"hostname_t":     BaseString,
	"integer_t":      BaseInteger,
	"ip_t":           BaseString,
	"json_t":         BaseJSON,
	"long_t":         BaseLong,
	"mac_t":          BaseString,
	"port_t":         BaseInteger,
	"process_name_t": BaseString,
	"reg_key_path_t": BaseString,
	"resource_uid_t": BaseString,
	"string_t":       BaseString,
	"subnet_t":       BaseString,
	"timestamp_t":    BaseLong,
	"url_t":          BaseString,
	"username_t":     BaseString,
	"uuid_t":         BaseString,
}

// IsSiblingIDName reports whether name has the form of the id half of a
// sibling pair.
func IsSiblingIDName(name string) bool {
	return strings.HasSuffix(name, IDSuffix) || strings.HasSuffix(name, UIDSuffix)
}

// LookupPrimitive returns the base type of a builtin primitive token.
func LookupPrimitive(token string) (BaseType, bool) {
	t, ok := PrimitiveTypes[token]
	return t, ok
}
