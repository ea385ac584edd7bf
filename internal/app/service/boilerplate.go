package service

import (
	"strings"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
)

// SpliceUserCode inserts the candidate's code at the boilerplate marker.
// The marker must occur exactly once; anything else means the stored
// boilerplate is corrupt and the submission must not reach the judge.
func SpliceUserCode(fullBoilerplate, userCode string) (string, error) {
	switch strings.Count(fullBoilerplate, model.BoilerplateMarker) {
	case 1:
		return strings.Replace(fullBoilerplate, model.BoilerplateMarker, userCode, 1), nil
	case 0:
		return "", common.Errorf("boilerplate is missing the user-code marker: %w", common.ErrInternalServer)
	default:
		return "", common.Errorf("boilerplate contains the user-code marker more than once: %w", common.ErrInternalServer)
	}
}
