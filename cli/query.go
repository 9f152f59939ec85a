package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/armapper/arm"
	"github.com/armapper/arm/builder"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	where    string
	having   string
	group    string
	selects  string
	joins    string
	order    string
	limit    int
	offset   int
	distinct bool
	filters  []string
	params   []string
	with     []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.where, "where", "", "WHERE clause, may use :name params")
	flags.StringVar(&f.having, "having", "", "HAVING clause")
	flags.StringVar(&f.group, "group", "", "GROUP BY columns")
	flags.StringVar(&f.selects, "select", "", "Selected columns (default *)")
	flags.StringVar(&f.joins, "joins", "", "JOIN clauses")
	flags.StringVar(&f.order, "order", "", "ORDER BY columns")
	flags.IntVar(&f.limit, "limit", 0, "Maximum number of records")
	flags.IntVar(&f.offset, "offset", 0, "Number of records to skip")
	flags.BoolVar(&f.distinct, "distinct", false, "Select distinct rows")
	flags.StringArrayVarP(&f.filters, "filter", "f", nil, "Equality filter field=value, a,b,c matches any of the values")
	flags.StringArrayVarP(&f.params, "param", "p", nil, "Statement param name=value")
}

func (f *queryFlags) options() (arm.FindOptions, error) {
	filters, err := parsePairs(f.filters, true)
	if err != nil {
		return arm.FindOptions{}, err
	}
	params, err := parsePairs(f.params, false)
	if err != nil {
		return arm.FindOptions{}, err
	}

	return arm.FindOptions{
		Select:   f.selects,
		Joins:    f.joins,
		Where:    f.where,
		Having:   f.having,
		Group:    f.group,
		Order:    f.order,
		Limit:    f.limit,
		Offset:   f.offset,
		Distinct: f.distinct,
		Params:   params,
		Filters:  filters,
	}, nil
}

func parsePairs(pairs []string, lists bool) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid %q, expected name=value", pair)
		}

		if lists && strings.Contains(value, ",") {
			var items []interface{}
			for _, item := range strings.Split(value, ",") {
				items = append(items, item)
			}
			values[name] = items
		} else {
			values[name] = value
		}
	}
	return values, nil
}

func newFindCommand(opts *options) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "find <model>",
		Short: "Print the records of a model matching the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			findOptions, err := flags.options()
			if err != nil {
				return err
			}

			return withModel(opts, args[0], func(model *arm.Model) error {
				ctx := cmd.Context()
				records, err := model.Find(ctx, findOptions)
				if err != nil {
					return err
				}

				result := make([]map[string]interface{}, 0, len(records))
				for _, record := range records {
					data, err := withRelations(ctx, record, flags.with)
					if err != nil {
						return err
					}
					result = append(result, data)
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&flags.with, "with", nil, "Relations to load into every record")
	return cmd
}

func newGetCommand(opts *options) *cobra.Command {
	var with []string
	cmd := &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Print the record of a model with the given primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withModel(opts, args[0], func(model *arm.Model) error {
				ctx := cmd.Context()
				record, err := model.FindByID(ctx, args[1])
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("%s %s not found", model.Name, args[1])
				}

				data, err := withRelations(ctx, record, with)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), data)
			})
		},
	}
	cmd.Flags().StringSliceVar(&with, "with", nil, "Relations to load into the record")
	return cmd
}

func newCountCommand(opts *options) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "count <model>",
		Short: "Print the number of records of a model matching the query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			findOptions, err := flags.options()
			if err != nil {
				return err
			}

			return withModel(opts, args[0], func(model *arm.Model) error {
				count, err := model.Count(cmd.Context(), findOptions)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), count)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSQLCommand(opts *options) *cobra.Command {
	flags := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "sql <model>",
		Short: "Print the SELECT statement of the query, with values substituted, without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			findOptions, err := flags.options()
			if err != nil {
				return err
			}

			return withModel(opts, args[0], func(model *arm.Model) error {
				statement := builder.Substitute(findOptions.Statement(model.Resource), findOptions.BindParams())
				fmt.Fprintln(cmd.OutOrStdout(), statement)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newModelsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models of the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := opts.project()
			if err != nil {
				return err
			}
			defer project.Close()

			type modelInfo struct {
				Name       string   `json:"name"`
				Resource   string   `json:"resource"`
				PrimaryKey string   `json:"pk"`
				Relations  []string `json:"relations,omitempty"`
			}

			var models []modelInfo
			for _, name := range project.Models() {
				model, err := project.Model(name)
				if err != nil {
					return err
				}
				models = append(models, modelInfo{
					Name:       model.Name,
					Resource:   model.Resource,
					PrimaryKey: model.PrimaryKey,
					Relations:  model.Relations(),
				})
			}
			return printJSON(cmd.OutOrStdout(), models)
		},
	}
}

func withModel(opts *options, name string, fc func(*arm.Model) error) error {
	project, err := opts.project()
	if err != nil {
		return err
	}
	defer project.Close()

	model, err := project.Model(name)
	if err != nil {
		return err
	}
	return fc(model)
}

func withRelations(ctx context.Context, record *arm.Record, relations []string) (map[string]interface{}, error) {
	data := record.ToMap(true)
	for _, name := range relations {
		related, err := record.Related(ctx, name)
		if err != nil {
			return nil, err
		}

		switch value := related.(type) {
		case []*arm.Record:
			items := make([]map[string]interface{}, 0, len(value))
			for _, item := range value {
				items = append(items, item.ToMap(true))
			}
			data[name] = items
		case *arm.Record:
			if value == nil {
				data[name] = nil
			} else {
				data[name] = value.ToMap(true)
			}
		}
	}
	return data, nil
}

func printJSON(w io.Writer, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
