package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"

	"github.com/armapper/arm"
	"github.com/armapper/arm/adapters/rest"
	"github.com/armapper/arm/adapters/sqladapter"
	"github.com/armapper/arm/dialects/mysql"
	"github.com/armapper/arm/dialects/sqlite"
	"github.com/armapper/arm/logger"
	"github.com/armapper/arm/schema"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported drivers
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverREST   = "rest"
)

// Supported log formats
const (
	FormatText    = "text"
	FormatLogrus  = "logrus"
	FormatZap     = "zap"
	FormatZerolog = "zerolog"
	FormatSlog    = "slog"
)

var relationKinds = map[string]func(interface{}, ...arm.RelationOption) *arm.Relation{
	"has_many":   arm.HasMany,
	"has_one":    arm.HasOne,
	"belongs_to": arm.BelongsTo,
}

// Validate checks the project for missing or unknown values
func (c *ProjectConfig) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}
	switch c.Log.Format {
	case "", FormatText, FormatLogrus, FormatZap, FormatZerolog, FormatSlog:
	default:
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	if c.RelationCacheSize < 0 {
		errs = append(errs, errors.New("relation_cache_size must not be negative"))
	}

	adapters := map[string]bool{}
	for i, adapter := range c.Adapters {
		switch adapter.Driver {
		case DriverMySQL, DriverSQLite, DriverREST:
		case "":
			errs = append(errs, fmt.Errorf("adapters[%d]: driver is required", i))
		default:
			errs = append(errs, fmt.Errorf("adapters[%d]: unknown driver %q", i, adapter.Driver))
		}
		if adapters[adapter.Name] {
			errs = append(errs, fmt.Errorf("adapters[%d]: duplicated name %q", i, adapter.Name))
		}
		adapters[adapter.Name] = true
	}

	models := map[string]bool{}
	for _, model := range c.Models {
		if model.Name != "" {
			models[model.Name] = true
		}
	}

	for i, model := range c.Models {
		if model.Name == "" {
			errs = append(errs, fmt.Errorf("models[%d]: name is required", i))
			continue
		}
		for _, name := range []string{model.Adapter, model.ReadAdapter, model.WriteAdapter} {
			if name != "" && !adapters[name] {
				errs = append(errs, fmt.Errorf("model %s: unknown adapter %q", model.Name, name))
			}
		}
		for field, nested := range model.Nested {
			if !models[nested] {
				errs = append(errs, fmt.Errorf("model %s: nested %s references unknown model %q", model.Name, field, nested))
			}
		}
		for _, relation := range model.Relations {
			if relation.Name == "" {
				errs = append(errs, fmt.Errorf("model %s: relation name is required", model.Name))
			}
			if _, ok := relationKinds[relation.Kind]; !ok {
				errs = append(errs, fmt.Errorf("model %s: relation %s has unknown kind %q", model.Name, relation.Name, relation.Kind))
			}
			if !models[relation.Target] {
				errs = append(errs, fmt.Errorf("model %s: relation %s targets unknown model %q", model.Name, relation.Name, relation.Target))
			}
			if relation.Through != nil && !models[relation.Through.Model] {
				errs = append(errs, fmt.Errorf("model %s: relation %s goes through unknown model %q", model.Name, relation.Name, relation.Through.Model))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Logger builds the logger selected by the log section, writing to w
func (c *ProjectConfig) Logger(w io.Writer) (logger.Interface, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	config := logger.Config{
		SlowThreshold:        c.Log.SlowThreshold,
		Colorful:             c.Log.Colorful,
		ParameterizedQueries: c.Log.ParameterizedQueries,
		LogLevel:             level,
	}

	switch c.Log.Format {
	case "", FormatText:
		return logger.New(log.New(w, "\r\n", log.LstdFlags), config), nil
	case FormatLogrus:
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetLevel(logrus.DebugLevel)
		return logger.NewLogrusLogger(l, config), nil
	case FormatZap:
		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			logger.ZapLevel(level),
		)
		return logger.NewZapLogger(zap.New(core), config), nil
	case FormatZerolog:
		return logger.NewZerologConsoleLogger(w, config), nil
	case FormatSlog:
		return logger.NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})), config), nil
	}
	return nil, fmt.Errorf("unknown log format %q", c.Log.Format)
}

// Project a registry built from a project file along with the adapters it opened
type Project struct {
	*arm.Registry

	closers []io.Closer
}

// Close closes every sql adapter of the project
func (p *Project) Close() error {
	var errs []error
	for _, closer := range p.closers {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build opens the adapters and defines the models of the project, logging to w
func (c *ProjectConfig) Build(w io.Writer) (*Project, error) {
	l, err := c.Logger(w)
	if err != nil {
		return nil, err
	}

	registry := arm.New(&arm.Config{
		Logger: l,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:     c.Naming.TablePrefix,
			PluralResource:  c.Naming.Plural,
			InitialismAware: c.Naming.Initialisms,
		},
		RelationCacheSize: c.RelationCacheSize,
	})
	project := &Project{Registry: registry}

	for _, ac := range c.Adapters {
		adapter, err := openAdapter(ac)
		if err != nil {
			project.Close()
			return nil, fmt.Errorf("adapter %q: %w", ac.Name, err)
		}
		if closer, ok := adapter.(io.Closer); ok {
			project.closers = append(project.closers, closer)
		}

		var names []string
		if ac.Name != "" {
			names = append(names, ac.Name)
		}
		if err := registry.AddAdapter(adapter, names...); err != nil {
			project.Close()
			return nil, err
		}
	}

	for _, mc := range c.Models {
		if _, err := registry.Define(mc.Name, mc.options()...); err != nil {
			project.Close()
			return nil, err
		}
	}
	return project, nil
}

func openAdapter(ac AdapterConfig) (arm.Adapter, error) {
	settings := arm.NewAdapterConfig(ac.Settings)
	config := sqladapter.Config{BindParams: ac.BindParams}

	switch ac.Driver {
	case DriverMySQL:
		return mysql.Open(settings, config)
	case DriverSQLite:
		return sqlite.Open(settings, config)
	case DriverREST:
		return rest.New(settings)
	}
	return nil, fmt.Errorf("%w: unknown driver %q", arm.ErrAdapterType, ac.Driver)
}

func (mc ModelConfig) options() []arm.ModelOption {
	var opts []arm.ModelOption
	if mc.Resource != "" {
		opts = append(opts, arm.WithResource(mc.Resource))
	}
	if mc.PrimaryKey != "" {
		opts = append(opts, arm.WithPrimaryKey(mc.PrimaryKey))
	}
	if mc.Adapter != "" {
		opts = append(opts, arm.WithAdapter(mc.Adapter))
	}
	if mc.ReadAdapter != "" {
		opts = append(opts, arm.WithReadAdapter(mc.ReadAdapter))
	}
	if mc.WriteAdapter != "" {
		opts = append(opts, arm.WithWriteAdapter(mc.WriteAdapter))
	}
	for field, model := range mc.Nested {
		opts = append(opts, arm.WithNested(field, model))
	}
	for _, rc := range mc.Relations {
		opts = append(opts, arm.WithRelation(rc.Name, rc.relation()))
	}
	return opts
}

func (rc RelationConfig) relation() *arm.Relation {
	opts := []arm.RelationOption{arm.WithQuery(rc.Query.options())}
	if rc.ForeignKey != "" {
		opts = append(opts, arm.WithForeignKey(rc.ForeignKey))
	}
	if rc.RelationKey != "" {
		opts = append(opts, arm.WithRelationKey(rc.RelationKey))
	}
	if rc.Through != nil {
		var through []arm.RelationOption
		if rc.Through.RelationKey != "" {
			through = append(through, arm.WithRelationKey(rc.Through.RelationKey))
		}
		if rc.Through.ForeignKey != "" {
			through = append(through, arm.WithForeignKey(rc.Through.ForeignKey))
		}
		if rc.Through.ThroughRelationKey != "" {
			through = append(through, arm.WithThroughRelationKey(rc.Through.ThroughRelationKey))
		}
		opts = append(opts, arm.WithThrough(arm.Through(rc.Through.Model, through...)))
	}
	return relationKinds[rc.Kind](rc.Target, opts...)
}

func (qc QueryConfig) options() arm.FindOptions {
	return arm.FindOptions{
		Select:   qc.Select,
		Joins:    qc.Joins,
		Where:    qc.Where,
		Having:   qc.Having,
		Group:    qc.Group,
		Order:    qc.Order,
		Limit:    qc.Limit,
		Offset:   qc.Offset,
		Distinct: qc.Distinct,
		Params:   qc.Params,
		Filters:  qc.Filters,
	}
}
