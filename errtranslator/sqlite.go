package errtranslator

import (
	"encoding/json"

	"github.com/armapper/arm"
)

var sqliteErrCodes = map[int]error{
	2067: arm.ErrDuplicatedKey, // SQLITE_CONSTRAINT_UNIQUE
	1555: arm.ErrDuplicatedKey, // SQLITE_CONSTRAINT_PRIMARYKEY
	787:  arm.ErrForeignKey,    // SQLITE_CONSTRAINT_FOREIGNKEY
	1299: arm.ErrNotNull,       // SQLITE_CONSTRAINT_NOTNULL
}

type SqliteErrTranslator struct{}

type SqliteErr struct {
	Code         int `json:"Code"`
	ExtendedCode int `json:"ExtendedCode"`
	SystemErrno  int `json:"SystemErrno"`
}

func (s *SqliteErrTranslator) Translate(err error) error {
	parsedErr, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		return nil
	}

	var sqliteErr SqliteErr
	unmarshalErr := json.Unmarshal(parsedErr, &sqliteErr)
	if unmarshalErr != nil {
		return nil
	}

	return sqliteErrCodes[sqliteErr.ExtendedCode]
}
