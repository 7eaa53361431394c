package changefeed

import (
	"context"
	"log/slog"
	"reflect"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type feed struct {
	publisher Publisher
	logger    *slog.Logger
	tables    map[string]bool
}

// RegisterCallbacks publishes one event per affected row after every
// committed create, update, or delete on the watched tables. Writes must
// carry the full row in the statement model (Save, Create, Delete of a
// loaded record) for the event to carry it too.
func RegisterCallbacks(db *gorm.DB, publisher Publisher, logger *slog.Logger, tables ...string) error {
	if len(tables) == 0 {
		tables = DefaultTables
	}
	f := &feed{publisher: publisher, logger: logger, tables: make(map[string]bool, len(tables))}
	for _, table := range tables {
		f.tables[table] = true
	}

	cb := db.Callback()
	if err := cb.Create().After("gorm:commit_or_rollback_transaction").Register("changefeed:create", f.emit(KindInsert)); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:commit_or_rollback_transaction").Register("changefeed:update", f.emit(KindUpdate)); err != nil {
		return err
	}
	return cb.Delete().After("gorm:commit_or_rollback_transaction").Register("changefeed:delete", f.emit(KindDelete))
}

func (f *feed) emit(kind Kind) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Error != nil || tx.RowsAffected == 0 || tx.Statement.Schema == nil {
			return
		}
		sch := tx.Statement.Schema
		if !f.tables[sch.Table] {
			return
		}

		ctx := tx.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		for _, rv := range rowValues(tx.Statement.ReflectValue) {
			ev, err := NewEvent(sch.Table, kind, rowOf(ctx, sch, rv))
			if err != nil {
				f.logger.Error("changefeed: encode row", slog.String("table", sch.Table), slog.Any("error", err))
				continue
			}
			if err := f.publisher.Publish(ctx, ev); err != nil {
				f.logger.Warn("changefeed: publish failed",
					slog.String("table", sch.Table), slog.String("kind", string(kind)), slog.Any("error", err))
			}
		}
	}
}

func rowValues(rv reflect.Value) []reflect.Value {
	rv = reflect.Indirect(rv)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]reflect.Value, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			if elem := reflect.Indirect(rv.Index(i)); elem.Kind() == reflect.Struct {
				out = append(out, elem)
			}
		}
		return out
	case reflect.Struct:
		return []reflect.Value{rv}
	}
	return nil
}

// rowOf maps column name to value, skipping relations and ignored fields.
func rowOf(ctx context.Context, sch *schema.Schema, rv reflect.Value) map[string]interface{} {
	row := make(map[string]interface{}, len(sch.DBNames))
	for _, name := range sch.DBNames {
		field := sch.FieldsByDBName[name]
		if field == nil {
			continue
		}
		value, _ := field.ValueOf(ctx, rv)
		row[name] = value
	}
	return row
}
