package trade

import (
	"time"

	"github.com/etnz/valutatrade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage is a step of an operation.
type Stage string

const (
	StageValidate Stage = "VALIDATE"
	StagePrice    Stage = "PRICE"
	StageDebit    Stage = "DEBIT"
	StageCredit   Stage = "CREDIT"
	StagePersist  Stage = "PERSIST"
	StageDone     Stage = "DONE"
	StageFail     Stage = "FAIL"
)

// StageError is the error of an operation, with the stage it failed at.
//
// Its message is the one of the underlying error, errors.Is and errors.As
// see through it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// operation logs the stages of one engine call.
type operation struct {
	id    string
	log   *zap.Logger
	start time.Time
}

func (e *Engine) begin(action Action, sess valutatrade.Session, code string) *operation {
	op := &operation{id: uuid.NewString(), start: time.Now()}
	op.log = e.log.With(
		zap.String("op", op.id),
		zap.String("action", string(action)),
		zap.Int("user_id", sess.UserID),
		zap.String("currency", code),
	)
	return op
}

// stage runs fn as stage st, logging its start and end.
func (op *operation) stage(st Stage, fn func() error) error {
	start := time.Now()
	op.log.Debug("stage started", zap.String("stage", string(st)))
	if err := fn(); err != nil {
		op.log.Debug("stage failed", zap.String("stage", string(st)), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return &StageError{Stage: st, Err: err}
	}
	op.log.Debug("stage done", zap.String("stage", string(st)), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (op *operation) fail(err error) error {
	op.log.Warn("operation failed", zap.String("stage", string(StageFail)), zap.Duration("elapsed", time.Since(op.start)), zap.Error(err))
	return err
}

func (op *operation) done(fields ...zap.Field) {
	fields = append(fields, zap.String("stage", string(StageDone)), zap.Duration("elapsed", time.Since(op.start)))
	op.log.Info("operation done", fields...)
}
