package sqldb

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx/reflectx"
)

// entityMapper maps result columns onto struct fields with the same rules
// the schema uses to name columns: the `db` tag name, else the snake_cased
// field name.
var entityMapper = reflectx.NewMapperFunc("db", snakeCase)

// Tabler lets an entity override its table name.
type Tabler interface {
	TableName() string
}

// ColumnMetadata describes one mapped struct field.
type ColumnMetadata struct {
	Name          string
	Field         string
	Type          reflect.Type
	PrimaryKey    bool
	AutoIncrement bool
	Unique        bool
	Nullable      bool
	SQLType       string // explicit type from the `type=` tag option

	index []int
}

// EntityMetadata describes how an entity struct maps onto a table.
type EntityMetadata struct {
	Name       string
	Table      string
	Type       reflect.Type
	Columns    []*ColumnMetadata
	PrimaryKey *ColumnMetadata

	byName map[string]*ColumnMetadata
}

// Column looks up a column by its database name.
func (m *EntityMetadata) Column(name string) (*ColumnMetadata, bool) {
	c, ok := m.byName[name]
	return c, ok
}

// ColumnNames returns column names in declaration order.
func (m *EntityMetadata) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Schema is the set of entity metadata shared by every connection built
// from the same configuration.
type Schema struct {
	entities []*EntityMetadata
	byType   map[reflect.Type]*EntityMetadata
}

// BuildSchema derives the schema from cfg without touching a database.
func BuildSchema(cfg Config) (*Schema, error) {
	return NewSchema(cfg.Entities...)
}

// NewSchema parses entity structs (values or pointers) into metadata.
func NewSchema(entities ...any) (*Schema, error) {
	s := &Schema{
		entities: make([]*EntityMetadata, 0, len(entities)),
		byType:   make(map[reflect.Type]*EntityMetadata, len(entities)),
	}

	for _, e := range entities {
		t := entityType(e)
		if t == nil {
			return nil, errors.Join(ErrInvalidEntity, fmt.Errorf("%T is not a struct", e))
		}
		if _, dup := s.byType[t]; dup {
			continue
		}
		meta, err := parseEntity(t)
		if err != nil {
			return nil, err
		}
		s.entities = append(s.entities, meta)
		s.byType[t] = meta
	}

	return s, nil
}

// Entities returns entity metadata in registration order.
func (s *Schema) Entities() []*EntityMetadata {
	if s == nil {
		return nil
	}
	out := make([]*EntityMetadata, len(s.entities))
	copy(out, s.entities)
	return out
}

// Has reports whether entity is part of the schema.
func (s *Schema) Has(entity any) bool {
	_, err := s.Metadata(entity)
	return err == nil
}

// Metadata returns the metadata of entity, given as a value, a pointer or a reflect.Type.
func (s *Schema) Metadata(entity any) (*EntityMetadata, error) {
	var t reflect.Type
	if rt, ok := entity.(reflect.Type); ok {
		t = rt
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
	} else {
		t = entityType(entity)
	}

	if s != nil && t != nil {
		if meta, ok := s.byType[t]; ok {
			return meta, nil
		}
	}
	return nil, errors.Join(ErrEntityMetadataNotFound, fmt.Errorf("no metadata for %v", t))
}

// MetadataOf returns the metadata of the entity type T. T must be the
// struct type itself; pointer and other kinds are rejected.
func MetadataOf[T any](s *Schema) (*EntityMetadata, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, errors.Join(ErrInvalidEntity, fmt.Errorf("%v is not a struct type", t))
	}
	return s.Metadata(t)
}

func entityType(e any) reflect.Type {
	t := reflect.TypeOf(e)
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func parseEntity(t reflect.Type) (*EntityMetadata, error) {
	meta := &EntityMetadata{
		Name:   t.Name(),
		Table:  snakeCase(t.Name()),
		Type:   t,
		byName: make(map[string]*ColumnMetadata),
	}
	if tabler, ok := reflect.New(t).Interface().(Tabler); ok {
		meta.Table = tabler.TableName()
	}

	if err := collectColumns(meta, t, nil); err != nil {
		return nil, err
	}
	if len(meta.Columns) == 0 {
		return nil, errors.Join(ErrInvalidEntity, fmt.Errorf("%s has no mapped columns", t))
	}

	if meta.PrimaryKey == nil {
		if c, ok := meta.byName["id"]; ok {
			c.PrimaryKey = true
			meta.PrimaryKey = c
		}
	}
	if meta.PrimaryKey == nil {
		return nil, errors.Join(ErrInvalidEntity, fmt.Errorf("%s has no primary key", t))
	}
	pk := meta.PrimaryKey
	pk.Nullable = false
	switch pk.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		pk.AutoIncrement = pk.SQLType == ""
	}

	return meta, nil
}

func collectColumns(meta *EntityMetadata, t reflect.Type, parent []int) error {
	for i := range t.NumField() {
		f := t.Field(i)
		index := append(append([]int{}, parent...), i)

		tag, hasTag := f.Tag.Lookup("db")
		if tag == "-" || !f.IsExported() {
			continue
		}
		if f.Anonymous && !hasTag && f.Type.Kind() == reflect.Struct && f.Type != timeType {
			if err := collectColumns(meta, f.Type, index); err != nil {
				return err
			}
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = snakeCase(f.Name)
		}
		if _, dup := meta.byName[name]; dup {
			return errors.Join(ErrInvalidEntity, fmt.Errorf("%s: duplicate column %q", meta.Name, name))
		}

		col := &ColumnMetadata{
			Name:     name,
			Field:    f.Name,
			Type:     f.Type,
			Nullable: f.Type.Kind() == reflect.Pointer,
			index:    index,
		}
		for opt := range strings.SplitSeq(opts, ",") {
			switch key, value, _ := strings.Cut(strings.TrimSpace(opt), "="); key {
			case "pk":
				col.PrimaryKey = true
			case "unique":
				col.Unique = true
			case "null":
				col.Nullable = true
			case "type":
				col.SQLType = value
			}
		}
		if col.PrimaryKey {
			if meta.PrimaryKey != nil {
				return errors.Join(ErrInvalidEntity, fmt.Errorf("%s: composite primary keys are not supported", meta.Name))
			}
			meta.PrimaryKey = col
		}

		meta.Columns = append(meta.Columns, col)
		meta.byName[name] = col
	}
	return nil
}

// snakeCase converts Go identifiers such as "UserID" or "HTTPServer" to
// "user_id" and "http_server".
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
