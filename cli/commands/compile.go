package commands

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/specql/specql/cli/internal/config"
	"github.com/specql/specql/cli/internal/ui"
	"github.com/specql/specql/compiler"
	"github.com/specql/specql/dialect"
	"github.com/specql/specql/expr"
	"github.com/specql/specql/filter"
	"github.com/specql/specql/schema"
	"github.com/specql/specql/spec"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a filter against a table layout into provider SQL",
	Long: `Compile builds a SELECT (or COUNT) for an ad-hoc table layout and
prints the SQL together with its parameter table.

Columns are declared as name:kind pairs; kinds are int, float, string,
bool, time, uuid, decimal and bytes (string when omitted).`,
	Example: `  specql compile -t Product -c Id:int,Name,Price:float -f 'price > 3 and contains(name, "bolt")'
  specql compile -t Product -c Id:int,Name --order Name:desc --skip 40 --take 20 -p postgres
  specql compile -t Product -c Id:int -f 'id in [1, 2, 3]' --count -o query.sql`,
	RunE: runCompile,
}

var (
	compileProvider string
	compileTable    string
	compileColumns  []string
	compileFilter   string
	compileOrder    []string
	compileSkip     int
	compileTake     int
	compileDistinct bool
	compileCount    bool
	compileOutput   string
)

func init() {
	compileCmd.Flags().StringVarP(&compileProvider, "provider", "p", "", "target provider: sqlserver, mysql or postgres")
	compileCmd.Flags().StringVarP(&compileTable, "table", "t", "", "table name, optionally schema-qualified")
	compileCmd.Flags().StringSliceVarP(&compileColumns, "columns", "c", nil, "column declarations as name:kind pairs")
	compileCmd.Flags().StringVarP(&compileFilter, "filter", "f", "", "filter predicate, e.g. 'price > 3 and isactive'")
	compileCmd.Flags().StringSliceVar(&compileOrder, "order", nil, "ordering keys as column or column:desc")
	compileCmd.Flags().IntVar(&compileSkip, "skip", 0, "rows to skip")
	compileCmd.Flags().IntVar(&compileTake, "take", 0, "rows to take")
	compileCmd.Flags().BoolVar(&compileDistinct, "distinct", false, "select distinct rows")
	compileCmd.Flags().BoolVar(&compileCount, "count", false, "compile a row count instead of a select")
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "write the SQL to a file")
	_ = compileCmd.MarkFlagRequired("table")

	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	providerName := compileProvider
	if providerName == "" {
		providerName = cfg.Provider
	}
	d, err := dialect.ForName(providerName)
	if err != nil {
		return err
	}

	entity, err := buildEntity(compileTable, compileColumns)
	if err != nil {
		return err
	}
	opts := queryOptions{
		filter:   compileFilter,
		order:    compileOrder,
		distinct: compileDistinct,
	}
	if cmd.Flags().Changed("skip") {
		opts.skip = &compileSkip
	}
	if cmd.Flags().Changed("take") {
		opts.take = &compileTake
	}
	def, err := buildDefinition(entity, opts)
	if err != nil {
		return err
	}

	c := compiler.New(d)
	var stmt compiler.Statement
	if compileCount {
		stmt, err = c.Count(def)
	} else {
		stmt, err = c.Select(def)
	}
	if err != nil {
		return err
	}

	ui.PrintHeader("specql", "compile · "+d.Name())
	ui.PrintBox("SQL", stmt.SQL)
	if len(stmt.Params) > 0 {
		fmt.Println()
		rows := make([][]string, len(stmt.Params))
		for i, p := range stmt.Params {
			rows[i] = []string{
				d.Placeholder(i),
				p.Name,
				fmt.Sprintf("%v", p.Value),
				fmt.Sprintf("%T", p.Value),
			}
		}
		ui.PrintTable([]string{"Placeholder", "Name", "Value", "Go type"}, rows)
	}

	if compileOutput != "" {
		if err := afero.WriteFile(config.AppFs, compileOutput, []byte(stmt.SQL+"\n"), 0644); err != nil {
			return fmt.Errorf("write %s: %w", compileOutput, err)
		}
		ui.PrintSuccess("wrote %s", ui.Highlight(compileOutput))
	}
	return nil
}

// queryOptions is the flag-independent input of buildDefinition.
type queryOptions struct {
	filter   string
	order    []string
	skip     *int
	take     *int
	distinct bool
}

// buildDefinition assembles the specification for the dynamic entity:
// identity selector, parsed filter, orderings and row bounds.
func buildDefinition(entity reflect.Type, opts queryOptions) (*spec.Definition, error) {
	sel := &expr.Param{Name: "p", Type: entity}
	def := &spec.Definition{
		Root:     entity,
		Result:   entity,
		Distinct: opts.distinct,
		Selector: expr.NewLambda(sel, sel),
	}

	if opts.filter != "" {
		pred, err := filter.Predicate(opts.filter)
		if err != nil {
			return nil, err
		}
		wp := &expr.Param{Name: "p", Type: entity}
		def.Where = expr.NewLambda(pred(wp), wp)
	}

	for _, o := range opts.order {
		name, dir, err := parseOrder(o)
		if err != nil {
			return nil, err
		}
		op := &expr.Param{Name: "p", Type: entity}
		def.Orderings = append(def.Orderings, spec.Ordering{
			Key:       expr.NewLambda(op.Field(name), op),
			Direction: dir,
		})
	}

	if opts.skip != nil {
		if *opts.skip < 0 {
			return nil, fmt.Errorf("skip must not be negative, got %d", *opts.skip)
		}
		n := *opts.skip
		def.Skip = &n
	}
	if opts.take != nil {
		if *opts.take < 0 {
			return nil, fmt.Errorf("take must not be negative, got %d", *opts.take)
		}
		n := *opts.take
		def.Take = &n
	}
	return def, nil
}

var columnKinds = map[string]reflect.Type{
	"int":     reflect.TypeOf(int64(0)),
	"float":   reflect.TypeOf(float64(0)),
	"string":  reflect.TypeOf(""),
	"bool":    reflect.TypeOf(false),
	"time":    reflect.TypeOf(time.Time{}),
	"uuid":    reflect.TypeOf(uuid.UUID{}),
	"decimal": reflect.TypeOf(decimal.Decimal{}),
	"bytes":   reflect.TypeOf([]byte(nil)),
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*$`)

// buildEntity constructs the run-time entity type for the declared layout.
// The table name travels on a schema.TableName marker field, so identical
// layouts for different tables stay distinct types.
func buildEntity(table string, columns []string) (reflect.Type, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("at least one column is required (-c name:kind)")
	}
	for _, part := range strings.Split(table, ".") {
		if !identRe.MatchString(part) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}

	fields := []reflect.StructField{{
		Name: "TableName",
		Type: reflect.TypeOf(schema.TableName{}),
		Tag:  reflect.StructTag(fmt.Sprintf(`db:%q`, table)),
	}}
	seen := map[string]string{}
	for _, c := range columns {
		name, kindName, _ := strings.Cut(c, ":")
		if !identRe.MatchString(name) {
			return nil, fmt.Errorf("invalid column name %q", name)
		}
		if kindName == "" {
			kindName = "string"
		}
		kind, ok := columnKinds[strings.ToLower(kindName)]
		if !ok {
			return nil, fmt.Errorf("unknown column kind %q in %q (int, float, string, bool, time, uuid, decimal, bytes)", kindName, c)
		}
		fieldName := strings.ToUpper(name[:1]) + name[1:]
		if fieldName == "TableName" {
			return nil, fmt.Errorf("column name %q is reserved", name)
		}
		if prev, dup := seen[fieldName]; dup {
			return nil, fmt.Errorf("columns %q and %q collide on field %s", prev, c, fieldName)
		}
		seen[fieldName] = c
		fields = append(fields, reflect.StructField{
			Name: fieldName,
			Type: kind,
			Tag:  reflect.StructTag(fmt.Sprintf(`db:%q`, name)),
		})
	}
	return reflect.StructOf(fields), nil
}

func parseOrder(o string) (string, spec.SortDirection, error) {
	name, dir, _ := strings.Cut(o, ":")
	if !identRe.MatchString(name) {
		return "", 0, fmt.Errorf("invalid ordering column %q", name)
	}
	switch strings.ToLower(dir) {
	case "", "asc":
		return name, spec.Ascending, nil
	case "desc":
		return name, spec.Descending, nil
	}
	return "", 0, fmt.Errorf("invalid ordering direction %q in %q (asc or desc)", dir, o)
}
