package service

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

func marshalJSON(v interface{}) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("序列化比对结果失败: %w", err)
	}
	return datatypes.JSON(data), nil
}
