package compare

import (
	"github.com/scriber/fundcompare/config"
)

func requiredTypes() map[string]struct{} {
	return config.GetSelfConfig().RequiredTypes()
}

// IsFileReady 所有必传的文档类型都到齐，才进行比对
func IsFileReady(sources []string, required map[string]struct{}) bool {
	exist := make(map[string]struct{}, len(sources))
	for _, source := range sources {
		exist[source] = struct{}{}
	}
	for name := range required {
		if _, ok := exist[name]; !ok {
			return false
		}
	}
	return true
}
