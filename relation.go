package arm

import (
	"context"
	"fmt"
	"sync"

	"github.com/armapper/arm/internal/lru"
)

// RelationKind how many target records a relation resolves to and which side holds the key
type RelationKind int

const (
	// HasManyRelation the targets reference the owner, resolves to a list
	HasManyRelation RelationKind = iota
	// HasOneRelation the target references the owner, resolves to one record
	HasOneRelation
	// BelongsToRelation the owner references the target, resolves to one record
	BelongsToRelation
)

func (kind RelationKind) String() string {
	switch kind {
	case HasManyRelation:
		return "has many"
	case HasOneRelation:
		return "has one"
	case BelongsToRelation:
		return "belongs to"
	}
	return fmt.Sprintf("RelationKind(%d)", int(kind))
}

// Relation declares how records of a model reach records of a target model.
//
// RelationKey is the owner field whose value selects the targets, ForeignKey the
// target field it is compared with. Unset keys are defaulted on every load from
// the owner and target models, explicit keys always win.
//
// A loaded value is cached per owner record and never invalidated.
type Relation struct {
	Kind               RelationKind
	ForeignKey         string
	RelationKey        string
	ThroughRelationKey string
	// Through is the hop over a join resource, its target is the join model
	Through *Relation
	// Query shapes the read of the targets
	Query FindOptions

	target interface{}
	owner  *Model
	name   string

	mu    sync.Mutex
	cache *lru.LRU[uint64, interface{}]
}

// RelationOption configures a relation
type RelationOption func(*Relation)

// WithForeignKey sets the target field compared with the owner value
func WithForeignKey(field string) RelationOption {
	return func(r *Relation) {
		r.ForeignKey = field
	}
}

// WithRelationKey sets the owner field holding the value to match
func WithRelationKey(field string) RelationOption {
	return func(r *Relation) {
		r.RelationKey = field
	}
}

// WithThroughRelationKey sets the join resource field that references the owner
func WithThroughRelationKey(field string) RelationOption {
	return func(r *Relation) {
		r.ThroughRelationKey = field
	}
}

// WithThrough resolves the relation over the join model of through
func WithThrough(through *Relation) RelationOption {
	return func(r *Relation) {
		r.Through = through
	}
}

// WithQuery shapes the read of the targets
func WithQuery(options FindOptions) RelationOption {
	return func(r *Relation) {
		r.Query = options
	}
}

// HasMany declares a one-to-many relation, target is a model name or *Model
func HasMany(target interface{}, opts ...RelationOption) *Relation {
	return newRelation(HasManyRelation, target, opts)
}

// HasOne declares a one-to-one relation where the target holds the key
func HasOne(target interface{}, opts ...RelationOption) *Relation {
	return newRelation(HasOneRelation, target, opts)
}

// BelongsTo declares a one-to-one relation where the owner holds the key
func BelongsTo(target interface{}, opts ...RelationOption) *Relation {
	return newRelation(BelongsToRelation, target, opts)
}

// Through declares the join model hop of a relation. Its RelationKey and
// ForeignKey join the join resource to the target, ThroughRelationKey is the
// join resource field matched against the owner value.
func Through(joinModel interface{}, opts ...RelationOption) *Relation {
	return newRelation(HasOneRelation, joinModel, opts)
}

func newRelation(kind RelationKind, target interface{}, opts []RelationOption) *Relation {
	relation := &Relation{Kind: kind, target: target}
	for _, opt := range opts {
		opt(relation)
	}
	return relation
}

func (rel *Relation) bind(owner *Model, name string) {
	rel.owner = owner
	rel.name = name
	rel.cache = lru.New[uint64, interface{}](owner.registry.RelationCacheSize, nil)
	for through := rel.Through; through != nil; through = through.Through {
		through.owner = owner
	}
}

// Name returns the field name the relation is declared under
func (rel *Relation) Name() string {
	return rel.name
}

// Target resolves the target model
func (rel *Relation) Target() (*Model, error) {
	switch target := rel.target.(type) {
	case *Model:
		return target, nil
	case string:
		if rel.owner == nil {
			return nil, fmt.Errorf("%w: relation to %s is not declared on a model", ErrModelType, target)
		}
		return rel.owner.registry.Model(target)
	}
	return nil, fmt.Errorf("%w: relation target %T", ErrModelType, rel.target)
}

// Keys returns the relation and foreign key, defaulted for the kind
func (rel *Relation) Keys(target *Model) (relationKey, foreignKey string) {
	namer := rel.owner.registry.NamingStrategy
	relationKey, foreignKey = rel.RelationKey, rel.ForeignKey

	switch rel.Kind {
	case BelongsToRelation:
		if relationKey == "" {
			relationKey = namer.KeyName(target.Resource, target.PrimaryKey)
		}
		if foreignKey == "" {
			foreignKey = target.PrimaryKey
		}
	default:
		if relationKey == "" {
			relationKey = rel.owner.PrimaryKey
		}
		if foreignKey == "" {
			foreignKey = namer.KeyName(rel.owner.Resource, rel.owner.PrimaryKey)
		}
	}
	return relationKey, foreignKey
}

// Options returns the read options that select the targets of owner
func (rel *Relation) Options(owner *Record) (FindOptions, error) {
	target, err := rel.Target()
	if err != nil {
		return FindOptions{}, err
	}

	relationKey, foreignKey := rel.Keys(target)
	value, ok := owner.Get(relationKey)
	if !ok || value == nil {
		return FindOptions{}, fmt.Errorf("%w: %s", ErrRelationField, relationKey)
	}

	options := rel.Query.Clone()
	if rel.Through == nil {
		options.Filters[foreignKey] = value
		return options, nil
	}

	through := rel.Through
	joinModel, err := through.Target()
	if err != nil {
		return FindOptions{}, err
	}

	namer := rel.owner.registry.NamingStrategy
	joinKey, targetKey, ownerKey := through.RelationKey, through.ForeignKey, through.ThroughRelationKey
	if joinKey == "" {
		joinKey = namer.KeyName(target.Resource, target.PrimaryKey)
	}
	if targetKey == "" {
		targetKey = target.PrimaryKey
	}
	if ownerKey == "" {
		ownerKey = namer.KeyName(rel.owner.Resource, rel.owner.PrimaryKey)
	}

	join := fmt.Sprintf("LEFT JOIN %s ON (%s.%s = %s.%s)", joinModel.Resource, joinModel.Resource, joinKey, target.Resource, targetKey)
	if options.Joins != "" {
		options.Joins += " " + join
	} else {
		options.Joins = join
	}

	where := fmt.Sprintf("(%s.%s = :foreign_key)", joinModel.Resource, ownerKey)
	if options.Where != "" {
		options.Where += " AND " + where
	} else {
		options.Where = where
	}
	options.Params["foreign_key"] = value
	return options, nil
}

// Load resolves the relation for owner: []*Record for HasMany, *Record (nil
// when not found) otherwise. The first result per owner is cached.
func (rel *Relation) Load(ctx context.Context, owner *Record) (interface{}, error) {
	if rel.owner == nil {
		return nil, fmt.Errorf("%w: relation is not declared on a model", ErrUnknownRelation)
	}
	if err := CheckRecord(owner); err != nil {
		return nil, err
	}

	rel.mu.Lock()
	defer rel.mu.Unlock()

	if value, ok := rel.cache.Get(owner.ID()); ok {
		return value, nil
	}

	options, err := rel.Options(owner)
	if err != nil {
		return nil, err
	}

	target, _ := rel.Target()
	rel.owner.registry.Logger.Info(ctx, "loading relation %s.%s (%s %s) for %s", rel.owner.Name, rel.name, rel.Kind, target.Name, owner)

	var value interface{}
	if rel.Kind == HasManyRelation {
		records, err := target.Find(ctx, options)
		if err != nil {
			return nil, err
		}
		value = records
	} else {
		record, err := target.FindOne(ctx, options)
		if err != nil {
			return nil, err
		}
		value = record
	}

	rel.cache.Add(owner.ID(), value)
	return value, nil
}

// Loaded returns the cached value for owner without loading it
func (rel *Relation) Loaded(owner *Record) (interface{}, bool) {
	if rel.cache == nil || owner == nil {
		return nil, false
	}
	return rel.cache.Peek(owner.ID())
}

// Related loads the relation declared under name
func (r *Record) Related(ctx context.Context, name string) (interface{}, error) {
	relation, err := r.model.Relation(name)
	if err != nil {
		return nil, err
	}
	return relation.Load(ctx, r)
}

// RelatedMany loads a HasMany relation
func (r *Record) RelatedMany(ctx context.Context, name string) ([]*Record, error) {
	value, err := r.Related(ctx, name)
	if err != nil {
		return nil, err
	}

	records, ok := value.([]*Record)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is not a has many relation", ErrUnknownRelation, r.model.Name, name)
	}
	return records, nil
}

// RelatedOne loads a HasOne or BelongsTo relation, nil when there is no target
func (r *Record) RelatedOne(ctx context.Context, name string) (*Record, error) {
	value, err := r.Related(ctx, name)
	if err != nil {
		return nil, err
	}

	record, ok := value.(*Record)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is a has many relation", ErrUnknownRelation, r.model.Name, name)
	}
	return record, nil
}

// LoadedRelation returns the value of relation name if it was loaded before
func (r *Record) LoadedRelation(name string) (interface{}, bool) {
	relation, err := r.model.Relation(name)
	if err != nil {
		return nil, false
	}
	return relation.Loaded(r)
}
