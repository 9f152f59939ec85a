package sqladapter

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/armapper/arm"
	"github.com/armapper/arm/builder"
	"github.com/armapper/arm/errtranslator"
	"github.com/armapper/arm/logger"
	"github.com/armapper/arm/utils"
)

// Transaction control statements reported as last query
const (
	StartTransactionStatement    = "START TRANSACTION"
	CommitTransactionStatement   = "COMMIT"
	RollbackTransactionStatement = "ROLLBACK"
)

// Dialect sql flavour of a database
type Dialect interface {
	errtranslator.ErrTranslator
	Name() string
	// ColumnsQuery returns the statement listing the columns of resource and
	// the result column holding the column name
	ColumnsQuery(resource string) (query string, nameColumn string)
	SupportsDeleteLimit() bool
}

// ConnPool db conns pool interface
type ConnPool interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// Config sql adapter config
type Config struct {
	// BindParams hands values to the driver as `?` arguments instead of
	// substituting escaped literals into the statement text
	BindParams bool
}

// Adapter reads and writes records through database/sql
type Adapter struct {
	*arm.AdapterConfig
	Config
	DB      *sql.DB
	Dialect Dialect
	Logger  logger.Interface

	mu         sync.Mutex
	tx         *sql.Tx
	lastQuery  string
	lastResult *arm.Result
}

// New returns an adapter over db speaking dialect
func New(db *sql.DB, dialect Dialect, settings *arm.AdapterConfig, config Config) *Adapter {
	if settings == nil {
		settings = arm.NewAdapterConfig(nil)
	}
	return &Adapter{
		AdapterConfig: settings,
		Config:        config,
		DB:            db,
		Dialect:       dialect,
		Logger:        logger.Default,
	}
}

// SetLogger traces statements through l
func (a *Adapter) SetLogger(l logger.Interface) {
	a.Logger = l
}

// Close closes the underlying database
func (a *Adapter) Close() error {
	return a.DB.Close()
}

// LastQuery returns the last statement issued
func (a *Adapter) LastQuery() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastQuery
}

// LastResult returns the outcome of the last statement issued
func (a *Adapter) LastResult() *arm.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastResult
}

func (a *Adapter) setLast(query string, result *arm.Result) {
	a.mu.Lock()
	a.lastQuery = query
	a.lastResult = result
	a.mu.Unlock()
}

func (a *Adapter) conn() ConnPool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.tx != nil {
		return a.tx
	}
	return a.DB
}

// Read runs the SELECT described by options and hydrates the rows as persisted records
func (a *Adapter) Read(ctx context.Context, model *arm.Model, options arm.FindOptions) ([]*arm.Record, error) {
	if err := arm.CheckModel(model); err != nil {
		return nil, err
	}

	statement, args := a.readStatement(model.Resource, options)
	rows, err := a.query(ctx, statement, args)
	if err != nil {
		return nil, err
	}

	records := make([]*arm.Record, 0, len(rows))
	for _, row := range rows {
		record, err := model.Load(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Create inserts the record fields that are columns of its resource
func (a *Adapter) Create(ctx context.Context, record *arm.Record) error {
	if err := arm.CheckRecord(record); err != nil {
		return err
	}

	model := record.Model()
	data, err := a.columnData(ctx, model.Resource, record)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		a.setLast("", nil)
		return arm.NewExecuteError("", arm.ErrNothingToWrite, fmt.Errorf("nothing to insert into %s", model.Resource))
	}

	vars := &builder.Vars{Bind: a.BindParams}
	return a.exec(ctx, builder.Insert(model.Resource, data, vars), vars.Args)
}

// Update writes the record fields that are columns of its resource, by primary key
func (a *Adapter) Update(ctx context.Context, record *arm.Record) error {
	if err := arm.CheckRecord(record); err != nil {
		return err
	}

	model := record.Model()
	id, ok := record.PrimaryKey()
	if !ok {
		a.setLast("", nil)
		return arm.NewExecuteError("", nil, fmt.Errorf("primary key %s of %s is not set", model.PrimaryKey, model.Name))
	}

	data, err := a.columnData(ctx, model.Resource, record)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		a.setLast("", nil)
		return arm.NewExecuteError("", arm.ErrNothingToWrite, fmt.Errorf("nothing to update in %s", model.Resource))
	}

	vars := &builder.Vars{Bind: a.BindParams}
	return a.exec(ctx, builder.Update(model.Resource, data, model.PrimaryKey, id, vars), vars.Args)
}

// Delete removes the row of the record by primary key
func (a *Adapter) Delete(ctx context.Context, record *arm.Record) error {
	if err := arm.CheckRecord(record); err != nil {
		return err
	}

	model := record.Model()
	id, _ := record.PrimaryKey()
	vars := &builder.Vars{Bind: a.BindParams}
	statement := builder.Delete(model.Resource, model.PrimaryKey, id, a.Dialect.SupportsDeleteLimit(), vars)
	return a.exec(ctx, statement, vars.Args)
}

// StartTransaction begins a transaction that subsequent statements run in
func (a *Adapter) StartTransaction(ctx context.Context) error {
	a.mu.Lock()
	open := a.tx != nil
	a.mu.Unlock()
	if open {
		return arm.ErrInvalidTransaction
	}

	begin := time.Now()
	tx, err := a.DB.BeginTx(ctx, nil)
	a.traceControl(ctx, begin, StartTransactionStatement, err)
	if err != nil {
		return arm.NewExecuteError(StartTransactionStatement, nil, err)
	}

	a.mu.Lock()
	a.tx = tx
	a.mu.Unlock()
	return nil
}

// CommitTransaction commits the open transaction, without one it only records the statement
func (a *Adapter) CommitTransaction(ctx context.Context) error {
	return a.endTransaction(ctx, CommitTransactionStatement, (*sql.Tx).Commit)
}

// RollbackTransaction rolls back the open transaction, without one it only records the statement
func (a *Adapter) RollbackTransaction(ctx context.Context) error {
	return a.endTransaction(ctx, RollbackTransactionStatement, (*sql.Tx).Rollback)
}

func (a *Adapter) endTransaction(ctx context.Context, statement string, end func(*sql.Tx) error) error {
	a.mu.Lock()
	tx := a.tx
	a.tx = nil
	a.mu.Unlock()

	var err error
	begin := time.Now()
	if tx != nil {
		err = end(tx)
	}
	a.traceControl(ctx, begin, statement, err)
	if err != nil {
		return arm.NewExecuteError(statement, nil, err)
	}
	return nil
}

func (a *Adapter) traceControl(ctx context.Context, begin time.Time, statement string, err error) {
	a.setLast(statement, &arm.Result{Statement: statement})
	a.Logger.Trace(ctx, begin, func() (string, int64) { return statement, 0 }, err)
}

// readStatement renders the SELECT of options, in bind mode list filters are
// bound as well and the values come back as driver arguments
func (a *Adapter) readStatement(resource string, options arm.FindOptions) (string, []interface{}) {
	params := options.BindParams()
	if !a.BindParams {
		return builder.Substitute(options.Statement(resource), params), nil
	}

	statement := options.Query
	if statement == "" {
		sel := options.Builder(resource)
		sel.BindLists = true
		statement = sel.Build()
		for key, value := range options.Filters {
			if builder.IsList(value) {
				params[key] = value
			}
		}
	}
	return builder.Bind(statement, params)
}

func (a *Adapter) explain(statement string, args []interface{}) string {
	if len(args) == 0 {
		return statement
	}
	return logger.ExplainSQL(statement, "'", args...)
}

// traced renders the statement handed to the logger, loggers implementing
// logger.ParamsFilter may drop the bound values first
func (a *Adapter) traced(ctx context.Context, statement string, args []interface{}) string {
	if filter, ok := a.Logger.(logger.ParamsFilter); ok {
		statement, args = filter.ParamsFilter(ctx, statement, args...)
	}
	return a.explain(statement, args)
}

func (a *Adapter) exec(ctx context.Context, statement string, args []interface{}) error {
	explained := a.explain(statement, args)
	begin := time.Now()
	res, err := a.conn().ExecContext(ctx, statement, args...)

	result := &arm.Result{Statement: explained, RowsAffected: -1}
	if err == nil {
		result.RowsAffected, _ = res.RowsAffected()
		result.LastInsertID, _ = res.LastInsertId()
	}
	a.setLast(explained, result)
	a.Logger.Trace(ctx, begin, func() (string, int64) { return a.traced(ctx, statement, args), result.RowsAffected }, err)

	if err != nil {
		return arm.NewExecuteError(explained, a.Dialect.Translate(err), err)
	}
	return nil
}

func (a *Adapter) query(ctx context.Context, statement string, args []interface{}) ([]map[string]interface{}, error) {
	explained := a.explain(statement, args)
	rows, err := a.fetch(ctx, statement, args)

	result := &arm.Result{Statement: explained, RowsAffected: int64(len(rows)), Rows: rows}
	a.setLast(explained, result)
	return rows, err
}

// fetch runs a query and scans every row into a map, []byte values become strings
func (a *Adapter) fetch(ctx context.Context, statement string, args []interface{}) (data []map[string]interface{}, err error) {
	explained := a.explain(statement, args)
	begin := time.Now()
	defer func() {
		a.Logger.Trace(ctx, begin, func() (string, int64) { return a.traced(ctx, statement, args), int64(len(data)) }, err)
	}()

	rows, err := a.conn().QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, arm.NewExecuteError(explained, a.Dialect.Translate(err), err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, arm.NewExecuteError(explained, nil, err)
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for idx := range values {
			pointers[idx] = &values[idx]
		}

		if err = rows.Scan(pointers...); err != nil {
			return nil, arm.NewExecuteError(explained, nil, err)
		}

		row := make(map[string]interface{}, len(columns))
		for idx, column := range columns {
			if b, ok := values[idx].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[idx]
			}
		}
		data = append(data, row)
	}

	if err = rows.Err(); err != nil {
		return nil, arm.NewExecuteError(explained, a.Dialect.Translate(err), err)
	}
	return data, nil
}

// Columns returns the column names of resource
func (a *Adapter) Columns(ctx context.Context, resource string) ([]string, error) {
	if !utils.IsIdentifier(resource) {
		return nil, fmt.Errorf("%w: resource %q", arm.ErrModelType, resource)
	}

	statement, nameColumn := a.Dialect.ColumnsQuery(resource)
	rows, err := a.fetch(ctx, statement, nil)
	if err != nil {
		a.setLast(statement, &arm.Result{Statement: statement})
		return nil, err
	}

	columns := make([]string, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, utils.ToString(row[nameColumn]))
	}
	return columns, nil
}

// columnData returns the record fields that are columns of resource
func (a *Adapter) columnData(ctx context.Context, resource string, record *arm.Record) (map[string]interface{}, error) {
	columns, err := a.Columns(ctx, resource)
	if err != nil {
		return nil, err
	}

	fields := record.Data(false)
	data := make(map[string]interface{}, len(columns))
	for _, column := range columns {
		if value, ok := fields[column]; ok {
			data[column] = value
		}
	}
	return data, nil
}
