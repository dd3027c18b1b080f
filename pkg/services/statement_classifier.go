// Package services contains the statement classification, dispatch and
// result formatting logic of the client.
package services

import (
	"fmt"
	"strings"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
)

type elemKind int

const (
	elemKeyword elemKind = iota
	elemTarget           // identifier captured as the statement target
	elemIdent            // identifier, not captured
	elemString           // string literal
	elemGroup            // balanced parenthesised group
)

type element struct {
	kind     elemKind
	words    []string
	optional bool
}

// signature is one leading-keyword pattern of the classification table.
type signature struct {
	text     string
	elems    []element
	category models.Category
	action   models.Action
}

// Pattern syntax: KW matches a keyword, A|B matches either keyword, ?KW is
// an optional keyword, $ is the target identifier, % is any identifier,
// ' is a string literal and () a parenthesised group.
var signatureTable = []struct {
	pattern  string
	category models.Category
	action   models.Action
}{
	// databases
	{"CREATE DATABASE|SCHEMA $", models.CategoryDatabaseDDL, models.ActionCreateDatabase},
	{"DROP DATABASE|SCHEMA $", models.CategoryDatabaseDDL, models.ActionDropDatabase},
	{"ALTER DATABASE|SCHEMA $", models.CategoryDatabaseDDL, models.ActionAlterDatabase},

	// tables
	{"CREATE ?TEMPORARY ?TRANSACTIONAL TABLE $", models.CategoryTableDDL, models.ActionCreateTable},
	{"CREATE ?TEMPORARY EXTERNAL TABLE $", models.CategoryTableDDL, models.ActionCreateTableExternal},
	{"CREATE ?TEMPORARY ?EXTERNAL TABLE $ LIKE %", models.CategoryTableDDL, models.ActionCreateTableLike},
	{"DROP TABLE $", models.CategoryTableDDL, models.ActionDropTable},
	{"ALTER TABLE $", models.CategoryTableDDL, models.ActionAlterTable},
	{"ALTER TABLE $ RENAME TO %", models.CategoryTableDDL, models.ActionAlterTableRename},
	{"ALTER TABLE $ ADD COLUMNS", models.CategoryTableDDL, models.ActionAlterTableAddCols},
	{"ALTER TABLE $ REPLACE COLUMNS", models.CategoryTableDDL, models.ActionAlterTableReplCols},
	{"ALTER TABLE $ CHANGE ?COLUMN", models.CategoryTableDDL, models.ActionAlterTableChangeCol},
	{"ALTER TABLE $ SET TBLPROPERTIES", models.CategoryTableDDL, models.ActionAlterTableSetProps},
	{"TRUNCATE ?TABLE $", models.CategoryTableDDL, models.ActionTruncateTable},
	{"MSCK ?REPAIR TABLE $", models.CategoryTableDDL, models.ActionRepairTable},

	// partitions
	{"ALTER TABLE $ ADD PARTITION", models.CategoryPartitionOp, models.ActionAddPartition},
	{"ALTER TABLE $ DROP PARTITION", models.CategoryPartitionOp, models.ActionDropPartition},
	{"ALTER TABLE $ PARTITION ()", models.CategoryPartitionOp, models.ActionAlterPartition},
	{"ALTER TABLE $ PARTITION () RENAME TO PARTITION", models.CategoryPartitionOp, models.ActionRenamePartition},

	// inserts
	{"INSERT INTO ?TABLE $", models.CategoryDMLInsert, models.ActionInsertInto},
	{"INSERT OVERWRITE TABLE $", models.CategoryDMLInsert, models.ActionInsertOverwrite},
	{"INSERT OVERWRITE ?LOCAL DIRECTORY '", models.CategoryDMLInsert, models.ActionInsertOverwrite},
	{"FROM % INSERT INTO ?TABLE $", models.CategoryDMLInsert, models.ActionInsertInto},
	{"FROM % INSERT OVERWRITE TABLE $", models.CategoryDMLInsert, models.ActionInsertOverwrite},

	// ACID updates
	{"UPDATE $", models.CategoryDMLUpdate, models.ActionUpdate},
	{"DELETE FROM $", models.CategoryDMLUpdate, models.ActionDelete},
	{"MERGE INTO $", models.CategoryDMLUpdate, models.ActionMerge},

	// loads
	{"LOAD DATA ?LOCAL INPATH ' ?OVERWRITE INTO TABLE $", models.CategoryDMLLoad, models.ActionLoadData},

	// queries
	{"SELECT", models.CategoryQuery, models.ActionSelect},
	{"FROM $ SELECT", models.CategoryQuery, models.ActionSelect},

	// views
	{"CREATE ?OR ?REPLACE ?MATERIALIZED VIEW $", models.CategoryViewOp, models.ActionCreateView},
	{"DROP ?MATERIALIZED VIEW $", models.CategoryViewOp, models.ActionDropView},
	{"ALTER ?MATERIALIZED VIEW $", models.CategoryViewOp, models.ActionAlterView},

	// metadata
	{"SHOW DATABASES|SCHEMAS", models.CategoryMetadataOp, models.ActionShowDatabases},
	{"SHOW TABLES", models.CategoryMetadataOp, models.ActionShowTables},
	{"SHOW ?MATERIALIZED VIEWS", models.CategoryMetadataOp, models.ActionShowViews},
	{"SHOW PARTITIONS $", models.CategoryMetadataOp, models.ActionShowPartitions},
	{"SHOW CREATE TABLE $", models.CategoryMetadataOp, models.ActionShowCreateTable},
	{"SHOW TBLPROPERTIES $", models.CategoryMetadataOp, models.ActionShowTblProperties},
	{"SHOW COLUMNS FROM|IN $", models.CategoryMetadataOp, models.ActionShowColumns},
	{"SHOW FUNCTIONS", models.CategoryMetadataOp, models.ActionShowFunctions},
	{"SHOW TRANSACTIONS", models.CategoryMetadataOp, models.ActionShowTransactions},
	{"SHOW COMPACTIONS", models.CategoryMetadataOp, models.ActionShowCompactions},
	{"SHOW LOCKS", models.CategoryMetadataOp, models.ActionShowLocks},
	{"DESCRIBE|DESC $", models.CategoryMetadataOp, models.ActionDescribe},
	{"DESCRIBE|DESC EXTENDED|FORMATTED $", models.CategoryMetadataOp, models.ActionDescribe},
	{"DESCRIBE|DESC DATABASE|SCHEMA ?EXTENDED $", models.CategoryMetadataOp, models.ActionDescribeDatabase},
	{"ANALYZE TABLE $", models.CategoryMetadataOp, models.ActionAnalyzeTable},
	{"EXPLAIN", models.CategoryMetadataOp, models.ActionExplain},

	// export / import
	{"EXPORT TABLE $", models.CategoryExportOp, models.ActionExportTable},
	{"IMPORT ?EXTERNAL TABLE $", models.CategoryExportOp, models.ActionImportTable},
	{"IMPORT FROM '", models.CategoryExportOp, models.ActionImportTable},

	// session
	{"USE $", models.CategorySessionOp, models.ActionUseDatabase},
	{"SET", models.CategorySessionOp, models.ActionSetProperty},
	{"RESET", models.CategorySessionOp, models.ActionReset},
}

// StatementClassifier assigns a category and sub-action to HiveQL text by
// matching its leading keywords against a fixed signature table. It holds no
// mutable state and is safe for concurrent use.
type StatementClassifier struct {
	signatures []signature
}

// NewStatementClassifier compiles the signature table.
func NewStatementClassifier() *StatementClassifier {
	sc := &StatementClassifier{signatures: make([]signature, 0, len(signatureTable))}
	for _, s := range signatureTable {
		sc.signatures = append(sc.signatures, signature{
			text:     s.pattern,
			elems:    compilePattern(s.pattern),
			category: s.category,
			action:   s.action,
		})
	}
	return sc
}

func compilePattern(p string) []element {
	parts := strings.Fields(p)
	elems := make([]element, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "$":
			elems = append(elems, element{kind: elemTarget})
		case "%":
			elems = append(elems, element{kind: elemIdent})
		case "'":
			elems = append(elems, element{kind: elemString})
		case "()":
			elems = append(elems, element{kind: elemGroup})
		default:
			el := element{kind: elemKeyword}
			if strings.HasPrefix(part, "?") {
				el.optional = true
				part = part[1:]
			}
			el.words = strings.Split(part, "|")
			elems = append(elems, el)
		}
	}
	return elems
}

// matchResult is the outcome of matching one signature.
type matchResult struct {
	ok       bool
	consumed int // tokens consumed on success
	reached  int // index of the first token that failed to match
	target   string
}

func (s *signature) match(toks []token) matchResult {
	pos := 0
	var target string
	for _, el := range s.elems {
		if pos >= len(toks) {
			if el.optional {
				continue
			}
			return matchResult{reached: pos}
		}
		t := toks[pos]
		switch el.kind {
		case elemKeyword:
			if t.kind == tokWord && containsWord(el.words, t.upper) {
				pos++
				continue
			}
			if el.optional {
				continue
			}
			return matchResult{reached: pos}
		case elemTarget, elemIdent:
			if !t.isIdent() || (el.kind == elemTarget && isReservedTarget(t)) {
				return matchResult{reached: pos}
			}
			if el.kind == elemTarget && target == "" {
				target = t.text
			}
			pos++
		case elemString:
			if t.kind != tokString {
				return matchResult{reached: pos}
			}
			pos++
		case elemGroup:
			end := closingParen(toks, pos)
			if end < 0 {
				return matchResult{reached: pos}
			}
			pos = end + 1
		}
	}
	return matchResult{ok: true, consumed: pos, reached: pos, target: target}
}

// reservedTargets are keywords that can never name a target unquoted, so
// DESCRIBE DATABASE is incomplete rather than a table named DATABASE.
var reservedTargets = map[string]bool{
	"DATABASE": true, "SCHEMA": true, "EXTENDED": true, "FORMATTED": true,
	"TABLE": true, "VIEW": true, "PARTITION": true,
}

func isReservedTarget(t token) bool {
	return t.kind == tokWord && reservedTargets[t.upper]
}

func containsWord(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

// closingParen returns the index of the parenthesis closing toks[open], or -1.
func closingParen(toks []token, open int) int {
	if open >= len(toks) || !toks[open].isPunct("(") {
		return -1
	}
	depth := 0
	for i := open; i < len(toks); i++ {
		switch {
		case toks[i].isPunct("("):
			depth++
		case toks[i].isPunct(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Classify classifies one HiveQL statement. The longest matching signature
// wins. Text that matches no signature yields a PARSE_ERROR naming the
// offending token.
func (sc *StatementClassifier) Classify(text string) (*models.Statement, error) {
	raw := trimStatement(text)
	lx := lex(raw)
	toks := lx.tokens
	if len(toks) == 0 {
		return nil, errors.New(errors.CodeParse, "empty statement")
	}
	if i := indexTopLevel(toks, func(t token) bool { return t.isPunct(";") }); i >= 0 {
		return nil, errors.New(errors.CodeParse, "multiple statements in one request").
			WithDetail("token", ";").
			WithDetail("position", toks[i].pos)
	}

	stmt := &models.Statement{Raw: raw}

	// A WITH prefix is skipped so the statement that follows decides the
	// category. CTE names are remembered so they never become the target.
	var ctes *cteList
	if toks[0].isWord("WITH") {
		list, body, failed := splitCTEs(toks)
		if failed >= 0 {
			return nil, parseError(toks, failed)
		}
		ctes, toks = list, body
	}
	toks = stripExistence(toks, stmt)

	var best *signature
	var bestMatch matchResult
	furthest := 0
	for i := range sc.signatures {
		sig := &sc.signatures[i]
		m := sig.match(toks)
		if !m.ok {
			if m.reached > furthest {
				furthest = m.reached
			}
			continue
		}
		if best == nil || m.consumed > bestMatch.consumed {
			best, bestMatch = sig, m
		}
	}
	if best == nil {
		return nil, parseError(toks, furthest)
	}
	if ctes != nil && !ctesAllowed(best.category) {
		return nil, errors.Newf(errors.CodeParse, "WITH cannot prefix %s", best.action).
			WithDetail("token", toks[0].text).
			WithDetail("position", toks[0].pos)
	}

	stmt.Category = best.category
	stmt.Action = best.action
	if bestMatch.target != "" && !(best.category == models.CategoryQuery && ctes.has(bestMatch.target)) {
		ref := targetRef(best.category, bestMatch.target)
		stmt.Target = &ref
	}

	if stmt.Category == models.CategoryQuery {
		if ctes != nil {
			stmt.Action = models.ActionWith
		}
		if stmt.Target == nil {
			if name, ok := firstFromTable(toks, ctes); ok {
				ref := models.ParseTableRef(name)
				stmt.Target = &ref
			} else if name, ok := ctes.sourceTable(); ok {
				ref := models.ParseTableRef(name)
				stmt.Target = &ref
			}
		}
		return stmt, nil
	}

	spec, found := partitionClause(toks)
	if stmt.Category == models.CategoryPartitionOp && !found {
		return nil, errors.Newf(errors.CodeParse, "%s requires a PARTITION (...) clause", stmt.Action).
			WithDetail("action", string(stmt.Action))
	}
	if found {
		if len(spec) == 0 {
			return nil, errors.New(errors.CodeParse, "empty PARTITION () clause").
				WithDetail("action", string(stmt.Action))
		}
		stmt.Partition = spec
	}
	return stmt, nil
}

// ctesAllowed reports whether a statement of category cat may follow a
// WITH clause.
func ctesAllowed(cat models.Category) bool {
	switch cat {
	case models.CategoryQuery, models.CategoryDMLInsert:
		return true
	default:
		return false
	}
}

// cteList holds the common table expressions of a WITH clause.
type cteList struct {
	names  map[string]bool
	bodies [][]token
}

func (c *cteList) has(name string) bool {
	return c != nil && c.names[strings.ToUpper(name)]
}

// sourceTable returns the first real table read by any CTE body.
func (c *cteList) sourceTable() (string, bool) {
	if c == nil {
		return "", false
	}
	for _, body := range c.bodies {
		if name, ok := firstFromTable(body, c); ok {
			return name, true
		}
	}
	return "", false
}

// splitCTEs consumes `WITH name AS (...) [, name AS (...)]` and returns the
// CTEs and the remaining tokens. failed is the index of the token that broke
// the clause, or -1.
func splitCTEs(toks []token) (list *cteList, body []token, failed int) {
	list = &cteList{names: map[string]bool{}}
	i := 1
	for {
		if i >= len(toks) || !toks[i].isIdent() || isReservedTarget(toks[i]) {
			return nil, nil, i
		}
		name := toks[i].upper
		i++
		if i >= len(toks) || !toks[i].isWord("AS") {
			return nil, nil, i
		}
		i++
		end := closingParen(toks, i)
		if end < 0 {
			return nil, nil, i
		}
		list.names[name] = true
		list.bodies = append(list.bodies, toks[i+1:end])
		i = end + 1
		if i < len(toks) && toks[i].isPunct(",") {
			i++
			continue
		}
		break
	}
	if i >= len(toks) {
		return nil, nil, i
	}
	return list, toks[i:], -1
}

// ClassifyCategory returns only the category, or "" when text is not
// recognized.
func (sc *StatementClassifier) ClassifyCategory(text string) models.Category {
	stmt, err := sc.Classify(text)
	if err != nil {
		return ""
	}
	return stmt.Category
}

// ExpectsRowSet reports whether the engine answers text with a row set.
func (sc *StatementClassifier) ExpectsRowSet(text string) bool {
	stmt, err := sc.Classify(text)
	if err != nil {
		return false
	}
	return stmt.ExpectsRowSet()
}

// ValidateStatement performs basic lexical validation: balanced quotes,
// terminated comments and balanced parentheses.
func (sc *StatementClassifier) ValidateStatement(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.CodeValidation, "empty SQL statement")
	}

	lx := lex(text)
	if lx.unterminatedComment {
		return errors.New(errors.CodeValidation, "unterminated block comment")
	}

	depth := 0
	for _, t := range lx.tokens {
		if t.unterminated {
			switch t.kind {
			case tokString:
				return errors.New(errors.CodeValidation, "unbalanced quotes").WithDetail("position", t.pos)
			default:
				return errors.New(errors.CodeValidation, "unterminated quoted identifier").WithDetail("position", t.pos)
			}
		}
		switch {
		case t.isPunct("("):
			depth++
		case t.isPunct(")"):
			depth--
			if depth < 0 {
				return errors.New(errors.CodeValidation, "unbalanced parentheses").WithDetail("position", t.pos)
			}
		}
	}
	if depth != 0 {
		return errors.New(errors.CodeValidation, "unbalanced parentheses")
	}
	return nil
}

func parseError(toks []token, furthest int) error {
	if furthest == 0 {
		return errors.Newf(errors.CodeParse, "unrecognized statement keyword %q", toks[0].text).
			WithDetail("token", toks[0].text).
			WithDetail("position", toks[0].pos)
	}
	if furthest >= len(toks) {
		last := toks[len(toks)-1]
		return errors.Newf(errors.CodeParse, "incomplete statement after %q", last.text).
			WithDetail("token", last.text).
			WithDetail("position", last.end)
	}
	t := toks[furthest]
	return errors.Newf(errors.CodeParse, "unexpected token %q after %q", t.text, toks[furthest-1].text).
		WithDetail("token", t.text).
		WithDetail("position", t.pos)
}

func trimStatement(text string) string {
	s := strings.TrimSpace(text)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}

func targetRef(cat models.Category, ident string) models.TableRef {
	switch cat {
	case models.CategoryDatabaseDDL, models.CategorySessionOp:
		return models.TableRef{Name: ident}
	default:
		return models.ParseTableRef(ident)
	}
}

// stripExistence removes the first IF [NOT] EXISTS that precedes any
// parenthesised group and records it on stmt.
func stripExistence(toks []token, stmt *models.Statement) []token {
	for i := 0; i+1 < len(toks); i++ {
		if toks[i].isPunct("(") {
			break
		}
		if !toks[i].isWord("IF") {
			continue
		}
		switch {
		case toks[i+1].isWord("EXISTS"):
			stmt.IfExists = true
			return append(append([]token{}, toks[:i]...), toks[i+2:]...)
		case i+2 < len(toks) && toks[i+1].isWord("NOT") && toks[i+2].isWord("EXISTS"):
			stmt.IfNotExists = true
			return append(append([]token{}, toks[:i]...), toks[i+3:]...)
		}
	}
	return toks
}

// indexTopLevel returns the index of the first token outside parentheses
// satisfying pred, or -1.
func indexTopLevel(toks []token, pred func(token) bool) int {
	depth := 0
	for i, t := range toks {
		switch {
		case t.isPunct("("):
			depth++
		case t.isPunct(")"):
			depth--
		case depth == 0 && pred(t):
			return i
		}
	}
	return -1
}

// firstFromTable returns the first table named after a top-level FROM or
// JOIN that is not one of ctes.
func firstFromTable(toks []token, ctes *cteList) (string, bool) {
	depth := 0
	for i, t := range toks {
		switch {
		case t.isPunct("("):
			depth++
		case t.isPunct(")"):
			depth--
		case depth == 0 && (t.isWord("FROM") || t.isWord("JOIN")):
			if i+1 < len(toks) && toks[i+1].isIdent() && !ctes.has(toks[i+1].text) {
				return toks[i+1].text, true
			}
		}
	}
	return "", false
}

// partitionClause parses the first top-level PARTITION (...) clause.
func partitionClause(toks []token) (models.PartitionSpec, bool) {
	depth := 0
	for i, t := range toks {
		switch {
		case t.isPunct("("):
			depth++
		case t.isPunct(")"):
			depth--
		case depth == 0 && t.isWord("PARTITION") && i+1 < len(toks) && toks[i+1].isPunct("("):
			end := closingParen(toks, i+1)
			if end < 0 {
				end = len(toks)
			}
			return parsePartitionEntries(toks[i+2 : end]), true
		}
	}
	return nil, false
}

// parsePartitionEntries parses `col op value, ...` leniently. Shape is
// checked by the dispatcher, so malformed entries are kept as-is.
func parsePartitionEntries(toks []token) models.PartitionSpec {
	spec := models.PartitionSpec{}
	if len(toks) == 0 {
		return spec
	}

	var parts [][]token
	start, depth := 0, 0
	for i, t := range toks {
		switch {
		case t.isPunct("("):
			depth++
		case t.isPunct(")"):
			depth--
		case depth == 0 && t.isPunct(","):
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	parts = append(parts, toks[start:])

	for _, part := range parts {
		var e models.PartitionEntry
		rest := part
		if len(rest) > 0 && rest[0].isIdent() {
			e.Column = rest[0].text
			rest = rest[1:]
		}
		if len(rest) > 0 && rest[0].kind == tokOperator {
			e.Operator = rest[0].text
			rest = rest[1:]
		}
		if len(rest) > 0 {
			e.Value = tokenValue(rest)
			e.HasValue = e.Operator != ""
		}
		spec = append(spec, e)
	}
	return spec
}

func tokenValue(toks []token) string {
	if len(toks) == 1 {
		return toks[0].text
	}
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.text)
	}
	return sb.String()
}

var defaultClassifier = NewStatementClassifier()

// Classify classifies text with the default signature table.
func Classify(text string) (*models.Statement, error) {
	return defaultClassifier.Classify(text)
}

// Describe renders a one-line summary of a classified statement.
func Describe(stmt *models.Statement) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%s", stmt.Category, stmt.Action)
	if stmt.Target != nil {
		fmt.Fprintf(&sb, " target=%s", stmt.Target)
	}
	if len(stmt.Partition) > 0 {
		sb.WriteString(" partition=(")
		for i, e := range stmt.Partition {
			if i > 0 {
				sb.WriteString(", ")
			}
			if e.HasValue {
				fmt.Fprintf(&sb, "%s%s%q", e.Column, e.Operator, e.Value)
			} else {
				sb.WriteString(e.Column)
			}
		}
		sb.WriteString(")")
	}
	return sb.String()
}
