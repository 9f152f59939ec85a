package errtranslator

import (
	"encoding/json"

	"github.com/armapper/arm"
)

var mysqlErrCodes = map[int]error{
	1062: arm.ErrDuplicatedKey,
	1169: arm.ErrDuplicatedKey,
	1216: arm.ErrForeignKey,
	1217: arm.ErrForeignKey,
	1451: arm.ErrForeignKey,
	1452: arm.ErrForeignKey,
	1048: arm.ErrNotNull,
	1364: arm.ErrNotNull,
}

type MysqlErrTranslator struct{}

type MysqlErr struct {
	Number  int    `json:"Number"`
	Message string `json:"Message"`
}

func (m *MysqlErrTranslator) Translate(err error) error {
	parsedErr, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		return nil
	}

	var mysqlErr MysqlErr
	unmarshalErr := json.Unmarshal(parsedErr, &mysqlErr)
	if unmarshalErr != nil {
		return nil
	}

	return mysqlErrCodes[mysqlErr.Number]
}
