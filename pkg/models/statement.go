// Package models provides data structures shared by the classifier, the
// dispatcher and the engine drivers.
package models

import (
	"strings"
)

// DefaultDatabase is the database a session starts in.
const DefaultDatabase = "default"

// Category is the coarse statement family used for routing.
type Category string

const (
	CategoryDatabaseDDL Category = "DATABASE_DDL"
	CategoryTableDDL    Category = "TABLE_DDL"
	CategoryPartitionOp Category = "PARTITION_OP"
	CategoryDMLInsert   Category = "DML_INSERT"
	CategoryDMLUpdate   Category = "DML_UPDATE"
	CategoryDMLLoad     Category = "DML_LOAD"
	CategoryQuery       Category = "QUERY"
	CategoryViewOp      Category = "VIEW_OP"
	CategoryMetadataOp  Category = "METADATA_OP"
	CategoryExportOp    Category = "EXPORT_OP"
	// CategorySessionOp covers USE and SET.
	CategorySessionOp Category = "SESSION_OP"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryDatabaseDDL,
	CategoryTableDDL,
	CategoryPartitionOp,
	CategoryDMLInsert,
	CategoryDMLUpdate,
	CategoryDMLLoad,
	CategoryQuery,
	CategoryViewOp,
	CategoryMetadataOp,
	CategoryExportOp,
	CategorySessionOp,
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// Action is the sub-action of a statement, e.g. CREATE_TABLE_EXTERNAL.
type Action string

const (
	ActionCreateDatabase Action = "CREATE_DATABASE"
	ActionDropDatabase   Action = "DROP_DATABASE"
	ActionAlterDatabase  Action = "ALTER_DATABASE"

	ActionCreateTable         Action = "CREATE_TABLE"
	ActionCreateTableExternal Action = "CREATE_TABLE_EXTERNAL"
	ActionCreateTableLike     Action = "CREATE_TABLE_LIKE"
	ActionDropTable           Action = "DROP_TABLE"
	ActionAlterTable          Action = "ALTER_TABLE"
	ActionAlterTableRename    Action = "ALTER_TABLE_RENAME"
	ActionAlterTableAddCols   Action = "ALTER_TABLE_ADD_COLUMNS"
	ActionAlterTableReplCols  Action = "ALTER_TABLE_REPLACE_COLUMNS"
	ActionAlterTableChangeCol Action = "ALTER_TABLE_CHANGE_COLUMN"
	ActionAlterTableSetProps  Action = "ALTER_TABLE_SET_TBLPROPERTIES"
	ActionTruncateTable       Action = "TRUNCATE_TABLE"
	ActionRepairTable         Action = "MSCK_REPAIR_TABLE"

	ActionAddPartition    Action = "ALTER_TABLE_ADD_PARTITION"
	ActionDropPartition   Action = "ALTER_TABLE_DROP_PARTITION"
	ActionRenamePartition Action = "ALTER_TABLE_RENAME_PARTITION"
	ActionAlterPartition  Action = "ALTER_TABLE_PARTITION"

	ActionInsertInto      Action = "INSERT_INTO"
	ActionInsertOverwrite Action = "INSERT_OVERWRITE"
	ActionUpdate          Action = "UPDATE"
	ActionDelete          Action = "DELETE"
	ActionMerge           Action = "MERGE"
	ActionLoadData        Action = "LOAD_DATA"

	ActionSelect Action = "SELECT"
	ActionWith   Action = "WITH"

	ActionCreateView Action = "CREATE_VIEW"
	ActionDropView   Action = "DROP_VIEW"
	ActionAlterView  Action = "ALTER_VIEW"

	ActionShowDatabases     Action = "SHOW_DATABASES"
	ActionShowTables        Action = "SHOW_TABLES"
	ActionShowViews         Action = "SHOW_VIEWS"
	ActionShowPartitions    Action = "SHOW_PARTITIONS"
	ActionShowCreateTable   Action = "SHOW_CREATE_TABLE"
	ActionShowTblProperties Action = "SHOW_TBLPROPERTIES"
	ActionShowColumns       Action = "SHOW_COLUMNS"
	ActionShowFunctions     Action = "SHOW_FUNCTIONS"
	ActionShowTransactions  Action = "SHOW_TRANSACTIONS"
	ActionShowCompactions   Action = "SHOW_COMPACTIONS"
	ActionShowLocks         Action = "SHOW_LOCKS"
	ActionDescribe          Action = "DESCRIBE"
	ActionDescribeDatabase  Action = "DESCRIBE_DATABASE"
	ActionAnalyzeTable      Action = "ANALYZE_TABLE"
	ActionExplain           Action = "EXPLAIN"

	ActionExportTable Action = "EXPORT_TABLE"
	ActionImportTable Action = "IMPORT_TABLE"

	ActionUseDatabase Action = "USE_DATABASE"
	ActionSetProperty Action = "SET_PROPERTY"
	ActionReset       Action = "RESET"
)

// TableRef names a database object. Database is empty when unqualified.
type TableRef struct {
	Database string `json:"database,omitempty"`
	Name     string `json:"name"`
}

// ParseTableRef splits a possibly qualified "db.name" identifier.
func ParseTableRef(ident string) TableRef {
	if i := strings.LastIndex(ident, "."); i >= 0 {
		return TableRef{Database: ident[:i], Name: ident[i+1:]}
	}
	return TableRef{Name: ident}
}

// Qualified reports whether the reference names its database.
func (r TableRef) Qualified() bool {
	return r.Database != ""
}

// Resolve returns r with db filled in when r is unqualified.
func (r TableRef) Resolve(db string) TableRef {
	if r.Database == "" {
		r.Database = db
	}
	return r
}

// String renders the reference as db.name, or name when unqualified.
func (r TableRef) String() string {
	if r.Database == "" {
		return r.Name
	}
	return r.Database + "." + r.Name
}

// PartitionEntry is one `column op value` element of a partition clause.
// HasValue is false for dynamic partition columns, e.g. PARTITION (dt).
type PartitionEntry struct {
	Column   string `json:"column"`
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
	HasValue bool   `json:"has_value"`
}

// PartitionSpec is the ordered list of entries of a PARTITION clause.
type PartitionSpec []PartitionEntry

// Map projects the spec to column -> value, skipping entries without a value.
func (p PartitionSpec) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, e := range p {
		if e.HasValue {
			m[e.Column] = e.Value
		}
	}
	return m
}

// Columns returns the partition columns in clause order.
func (p PartitionSpec) Columns() []string {
	cols := make([]string, 0, len(p))
	for _, e := range p {
		cols = append(cols, e.Column)
	}
	return cols
}

// Statement is a classified HiveQL statement. Raw is forwarded verbatim.
type Statement struct {
	Raw         string        `json:"raw"`
	Category    Category      `json:"category"`
	Action      Action        `json:"action"`
	Target      *TableRef     `json:"target,omitempty"`
	Partition   PartitionSpec `json:"partition,omitempty"`
	IfExists    bool          `json:"if_exists,omitempty"`
	IfNotExists bool          `json:"if_not_exists,omitempty"`
}

// ExpectsRowSet reports whether the engine answers the statement with rows.
func (s *Statement) ExpectsRowSet() bool {
	switch s.Category {
	case CategoryQuery, CategoryMetadataOp:
		return true
	case CategorySessionOp:
		// a bare SET lists the session configuration
		return s.Action == ActionSetProperty && isBareSet(s.Raw)
	default:
		return false
	}
}

func isBareSet(raw string) bool {
	fields := strings.Fields(strings.TrimRight(strings.TrimSpace(raw), ";"))
	return len(fields) == 1 || (len(fields) == 2 && strings.EqualFold(fields[1], "-v"))
}
