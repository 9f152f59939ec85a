package errtranslator

// ErrTranslator classifies a driver error into one of the integrity kinds
// arm.ErrDuplicatedKey, arm.ErrForeignKey or arm.ErrNotNull.
// Translate returns nil when the error is of no known kind.
type ErrTranslator interface {
	Translate(err error) error
}

// Noop classifies nothing
type Noop struct{}

func (Noop) Translate(error) error {
	return nil
}
