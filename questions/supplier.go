package questions

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/triviaserver/game"
	"github.com/wfunc/triviaserver/logger"
	"github.com/wfunc/triviaserver/models"
)

// Validated rejects any batch that is not exactly count well-formed questions.
type Validated struct {
	next game.QuestionSupplier
}

func NewValidated(next game.QuestionSupplier) *Validated {
	return &Validated{next: next}
}

func (v *Validated) Questions(ctx context.Context, category, difficulty string, count int) ([]models.Question, error) {
	batch, err := v.next.Questions(ctx, category, difficulty, count)
	if err != nil {
		return nil, err
	}
	if len(batch) != count {
		return nil, fmt.Errorf("%w: got %d questions, want %d", models.ErrMalformedQuestion, len(batch), count)
	}
	if err := models.ValidateQuestions(batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Fallback asks each supplier in turn and returns the first full batch.
type Fallback []game.QuestionSupplier

func (f Fallback) Questions(ctx context.Context, category, difficulty string, count int) ([]models.Question, error) {
	var errs []error
	for i, s := range f {
		batch, err := s.Questions(ctx, category, difficulty, count)
		if err == nil && len(batch) == count {
			return batch, nil
		}
		if err == nil {
			err = fmt.Errorf("supplier %d returned %d of %d questions", i, len(batch), count)
		}
		logger.Log.Warnw("question supplier failed, trying next", "index", i, "category", category, "error", err)
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return nil, errors.New("no question supplier configured")
	}
	return nil, errors.Join(errs...)
}
