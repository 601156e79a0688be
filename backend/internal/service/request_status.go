package service

import "tech-visit/backend/internal/model"

// statusTransitions 请求状态流转表：from → 允许的 to
// completed / cancelled 为终态，没有出边
var statusTransitions = map[string]map[string]bool{
	model.StatusPending: {
		model.StatusInProgress: true,
		model.StatusCancelled:  true,
	},
	model.StatusInProgress: {
		model.StatusCompleted: true,
		model.StatusCancelled: true,
	},
}

// checkTransition 校验状态流转；同状态写入视为无操作，返回 changed=false
func checkTransition(from, to string) (changed bool, err error) {
	if !model.IsValidStatus(to) {
		return false, ErrInvalidRequestField.WithFields("status")
	}
	if from == to {
		return false, nil
	}
	if !statusTransitions[from][to] {
		return false, ErrInvalidTransition
	}
	return true, nil
}
