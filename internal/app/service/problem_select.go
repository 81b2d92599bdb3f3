package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cparena/internal/common"
	"cparena/internal/platform/judge"
)

// ProblemSpec names a judge problem either directly by
// (contest id, index) or as a random draw over the catalog.
type ProblemSpec struct {
	ContestID int    `json:"contest_id,omitempty"`
	Index     string `json:"index,omitempty"`

	Tags      []string `json:"tags,omitempty"`
	Rating    string   `json:"rating,omitempty"`
	MinSolved int      `json:"min_solved,omitempty"`
}

func (s ProblemSpec) direct() bool {
	return s.ContestID != 0 && s.Index != ""
}

// ProblemSelector resolves a ProblemSpec against the judge's catalog,
// shared by the challenge and contest services.
type ProblemSelector struct {
	judge  judge.API
	picker *judge.Picker
}

func NewProblemSelector(judgeAPI judge.API, picker *judge.Picker) *ProblemSelector {
	return &ProblemSelector{judge: judgeAPI, picker: picker}
}

func (s *ProblemSelector) Select(ctx context.Context, spec ProblemSpec) (*judge.Problem, error) {
	problems, err := s.judge.ProblemSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch problem catalog: %w", err)
	}

	if spec.direct() {
		for i := range problems {
			if problems[i].ContestID == spec.ContestID && strings.EqualFold(problems[i].Index, spec.Index) {
				return &problems[i], nil
			}
		}
		return nil, fmt.Errorf("problem %d/%s not found on the judge: %w", spec.ContestID, spec.Index, common.ErrValidation)
	}

	picked, err := s.picker.PickRandom(problems, spec.Tags, spec.Rating, spec.MinSolved)
	if err != nil {
		if errors.Is(err, judge.ErrNoProblemFound) {
			return nil, fmt.Errorf("%v: %w", err, common.ErrNotFound)
		}
		return nil, err
	}
	return picked, nil
}
