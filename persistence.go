package arm

import (
	"context"
	"sort"
	"strings"
)

// StatementSeparator joins the statements of one write call into the model's last query
const StatementSeparator = "; "

// WriteOption tunes a write call
type WriteOption func(*writeOptions)

type writeOptions struct {
	transactional bool
	withRelations bool
	// records already written by the enclosing call
	visited map[uint64]struct{}
}

// Transactional wraps the write in a transaction of the write adapter
func Transactional(enabled bool) WriteOption {
	return func(o *writeOptions) {
		o.transactional = enabled
	}
}

// WithRelations also updates every nested record and every loaded has one or
// belongs to record, inside the same transaction
func WithRelations(enabled bool) WriteOption {
	return func(o *writeOptions) {
		o.withRelations = enabled
	}
}

func withVisited(visited map[uint64]struct{}) WriteOption {
	return func(o *writeOptions) {
		o.visited = visited
	}
}

func newWriteOptions(transactional bool, opts []WriteOption) writeOptions {
	options := writeOptions{transactional: transactional}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// session collects the statements of one write call on a model
type session struct {
	ctx        context.Context
	model      *Model
	adapter    Adapter
	transactor Transactor
	statements []string
}

func (m *Model) begin(ctx context.Context, transactional bool) (*session, error) {
	adapter, err := m.writeAdapter()
	if err != nil {
		return nil, err
	}

	s := &session{ctx: ctx, model: m, adapter: adapter}
	if !transactional {
		return s, nil
	}

	transactor, ok := adapter.(Transactor)
	if !ok {
		m.logWarn(ctx, "write adapter of %s does not support transactions, writing without one", m.Name)
		return s, nil
	}

	if err := transactor.StartTransaction(ctx); err != nil {
		s.trace()
		s.finish()
		return nil, err
	}
	s.transactor = transactor
	s.trace()
	return s, nil
}

// trace appends the statement the adapter issued last
func (s *session) trace() {
	if introspector, ok := s.adapter.(Introspector); ok {
		s.append(introspector.LastQuery())
	}
}

func (s *session) append(statement string) {
	if statement != "" {
		s.statements = append(s.statements, statement)
	}
}

// snapshot copies the adapter's last result onto the model
func (s *session) snapshot() {
	if introspector, ok := s.adapter.(Introspector); ok {
		s.model.setLastResult(introspector.LastResult())
	}
}

func (s *session) finish() {
	s.model.setLastQuery(strings.Join(s.statements, StatementSeparator))
}

// fail rolls back and returns err unchanged
func (s *session) fail(err error) error {
	s.snapshot()
	s.trace()

	if s.transactor != nil {
		if rollbackErr := s.transactor.RollbackTransaction(s.ctx); rollbackErr != nil {
			s.model.registry.Logger.Error(s.ctx, "rollback of %s failed: %v", s.model.Name, rollbackErr)
		}
		s.trace()
	}

	s.finish()
	return err
}

func (s *session) commit() error {
	if s.transactor != nil {
		if err := s.transactor.CommitTransaction(s.ctx); err != nil {
			s.trace()
			s.finish()
			return err
		}
		s.trace()
	}

	s.finish()
	return nil
}

// Create inserts the record, in a transaction unless Transactional(false).
//
// On success the record is no longer new and receives the id the store
// assigned, if any. On failure the transaction is rolled back and the adapter
// error is returned unchanged.
func (r *Record) Create(ctx context.Context, opts ...WriteOption) error {
	if err := CheckRecord(r); err != nil {
		return err
	}

	options := newWriteOptions(true, opts)
	s, err := r.model.begin(ctx, options.transactional)
	if err != nil {
		return err
	}

	if err := s.adapter.Create(ctx, r); err != nil {
		return s.fail(err)
	}

	r.isNew = false
	if introspector, ok := s.adapter.(Introspector); ok {
		if result := introspector.LastResult(); result != nil && result.LastInsertID != 0 {
			r.fields[r.model.PrimaryKey] = result.LastInsertID
		}
	}
	s.trace()
	s.snapshot()

	return s.commit()
}

// Update writes the record, in a transaction unless Transactional(false).
// WithRelations(true) also updates the nested records and the loaded single
// record relations, recursively, as part of the same transaction. Each record
// is written once per call.
func (r *Record) Update(ctx context.Context, opts ...WriteOption) error {
	if err := CheckRecord(r); err != nil {
		return err
	}

	options := newWriteOptions(true, opts)
	s, err := r.model.begin(ctx, options.transactional)
	if err != nil {
		return err
	}

	if err := s.adapter.Update(ctx, r); err != nil {
		return s.fail(err)
	}
	s.trace()
	s.snapshot()

	if options.withRelations {
		visited := options.visited
		if visited == nil {
			visited = map[uint64]struct{}{r.id: {}}
		}
		for _, related := range r.relatedRecords() {
			if _, ok := visited[related.id]; ok {
				continue
			}
			visited[related.id] = struct{}{}
			if err := related.Update(ctx, Transactional(false), WithRelations(true), withVisited(visited)); err != nil {
				return s.fail(err)
			}
			s.append(related.model.LastQuery())
		}
	}

	return s.commit()
}

// Save creates the record when it is new and updates it otherwise. Unlike
// Create and Update it does not open a transaction unless Transactional(true).
func (r *Record) Save(ctx context.Context, opts ...WriteOption) error {
	opts = append([]WriteOption{Transactional(false)}, opts...)
	if r != nil && r.isNew {
		return r.Create(ctx, opts...)
	}
	return r.Update(ctx, opts...)
}

// Delete removes the record from the store, marks it new and drops its primary
// key. Transactional adapters are committed afterwards whether or not a
// transaction was started.
func (r *Record) Delete(ctx context.Context) error {
	if err := CheckRecord(r); err != nil {
		return err
	}

	adapter, err := r.model.writeAdapter()
	if err != nil {
		return err
	}

	if err := adapter.Delete(ctx, r); err != nil {
		return err
	}
	r.model.mirror(adapter)

	if transactor, ok := adapter.(Transactor); ok {
		if err := transactor.CommitTransaction(ctx); err != nil {
			return err
		}
	}

	r.isNew = true
	r.Del(r.model.PrimaryKey)
	return nil
}

func sortedRecordNames(records map[string]*Record) []string {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
