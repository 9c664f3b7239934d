package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"banking-ledger/internal/ledger"
	"banking-ledger/internal/model"
)

const (
	EventProcessingTransaction = "PROCESSING_TRANSACTION"
	EventSuccessfulTransaction = "SUCCESSFUL_TRANSACTION"
	EventFailedTransaction     = "FAILED_TRANSACTION"
	EventReconciliation        = "RECONCILIATION_REQUIRED"
	EventAuditGap              = "AUDIT_GAP"
)

const (
	msgSuccessful     = "Transaction successful"
	msgInternalError  = "Transaction failed due to an internal error"
	msgReconciliation = "Transaction failed, our team has been notified and will contact you"
)

// TransactionService проводит операцию через проверку, изменение балансов,
// компенсацию при частичном переводе и запись итога в журнал.
type TransactionService struct {
	validator *TransactionValidator
	ledger    *ledger.Ledger
	recorder  *Recorder
	alerter   Alerter
	logger    *logrus.Logger
	alerts    sync.WaitGroup // оповещения в отправке
}

func NewTransactionService(
	validator *TransactionValidator,
	ledger *ledger.Ledger,
	recorder *Recorder,
	alerter Alerter,
	logger *logrus.Logger,
) *TransactionService {
	return &TransactionService{
		validator: validator,
		ledger:    ledger,
		recorder:  recorder,
		alerter:   alerter,
		logger:    logger,
	}
}

func (s *TransactionService) ProcessTransfer(ctx context.Context, req model.TransactionRequest) (*model.Result, error) {
	req.Type = model.TransactionTypeTransfer
	return s.process(ctx, req)
}

func (s *TransactionService) ProcessDeposit(ctx context.Context, req model.TransactionRequest) (*model.Result, error) {
	req.Type = model.TransactionTypeDeposit
	return s.process(ctx, req)
}

func (s *TransactionService) ProcessWithdrawal(ctx context.Context, req model.TransactionRequest) (*model.Result, error) {
	req.Type = model.TransactionTypeWithdrawal
	return s.process(ctx, req)
}

// attempt - состояние одной операции до записи в журнал
type attempt struct {
	tx     *model.Transaction
	state  *model.StateMachine
	log    *logrus.Entry
	status model.TransactionStatus
	reason string
	result *model.Result
	err    error
}

func (a *attempt) advance(next model.TransactionState) {
	if err := a.state.Transition(next); err != nil {
		panic(err)
	}
}

func (a *attempt) succeed() {
	a.status = model.TransactionStatusSuccessful
	a.result.Status = model.TransactionStatusSuccessful
	a.result.ClientMessage = msgSuccessful
}

// fail заполняет итог по ошибке: отказ отдает клиенту свое сообщение,
// сбой отдает общее сообщение и пробрасывается вызывающему.
func (a *attempt) fail(reason string, cause error) {
	a.status = model.TransactionStatusFailed
	a.reason = reason
	a.result.Status = model.TransactionStatusFailed
	if rej, ok := model.AsRejection(cause); ok {
		a.result.ClientMessage = rej.ClientMessage
		a.result.Unprocessable = rej.Unprocessable
		return
	}
	a.result.ClientMessage = msgInternalError
	a.err = cause
}

func (s *TransactionService) process(ctx context.Context, req model.TransactionRequest) (*model.Result, error) {
	tx := model.NewTransaction(req)
	a := &attempt{
		tx:     tx,
		state:  model.NewStateMachine(),
		log:    s.logger.WithFields(transactionFields(tx)),
		result: &model.Result{TransactionID: tx.ID},
	}
	a.log.WithField("event", EventProcessingTransaction).Info("Обработка транзакции")

	a.advance(model.StateValidating)
	if err := s.validator.Validate(ctx, req); err != nil {
		if rej, ok := model.AsRejection(err); ok {
			a.advance(model.StateRejected)
			a.fail(rej.SystemMessage, rej)
		} else {
			a.fail(err.Error(), err)
		}
		return s.finish(ctx, a)
	}

	a.advance(model.StateMutating)
	switch req.Type {
	case model.TransactionTypeTransfer:
		s.transfer(ctx, a)
	case model.TransactionTypeDeposit:
		_, err := s.ledger.Deposit(ctx, req.AccountNumber, req.Amount)
		s.settle(a, err)
	case model.TransactionTypeWithdrawal:
		_, err := s.ledger.Withdraw(ctx, req.AccountNumber, req.Amount)
		s.settle(a, err)
	}
	return s.finish(ctx, a)
}

func (s *TransactionService) settle(a *attempt, err error) {
	if err != nil {
		a.fail(err.Error(), err)
		return
	}
	a.succeed()
}

// transfer никогда не зачисляет до успешного списания. Если зачисление не прошло,
// сумма возвращается источнику; если не прошел и возврат, нужна ручная сверка.
func (s *TransactionService) transfer(ctx context.Context, a *attempt) {
	tx := a.tx
	res := s.ledger.Transfer(ctx, tx.AccountNumber, tx.ToAccount, tx.Amount)
	if res.WithdrawErr != nil {
		a.fail(res.WithdrawErr.Error(), res.WithdrawErr)
		return
	}
	if res.DepositErr == nil {
		a.succeed()
		return
	}

	a.advance(model.StateCompensating)
	a.log.WithError(res.DepositErr).Warn("Зачисление не выполнено, возврат средств отправителю")

	// Списание уже проведено: возврат не должен прерываться отменой запроса
	_, compErr := s.ledger.Compensate(context.WithoutCancel(ctx), tx.AccountNumber, tx.Amount)
	a.advance(model.StateFailed)

	if compErr == nil {
		a.fail("deposit leg failed, source compensated: "+res.DepositErr.Error(), res.DepositErr)
		return
	}

	reason := fmt.Sprintf("%s: deposit failed: %v; compensation failed: %v", EventReconciliation, res.DepositErr, compErr)
	fields := transactionFields(tx)
	fields["event"] = EventReconciliation
	fields["deposit_error"] = res.DepositErr.Error()
	fields["compensation_error"] = compErr.Error()
	s.logger.WithFields(fields).Error("Средства списаны, но не зачислены и не возвращены, требуется сверка")
	s.alert(EventReconciliation, fields)

	a.fail(reason, fmt.Errorf("%w: transaction %s", model.ErrReconciliationRequired, tx.ID))
	a.result.ClientMessage = msgReconciliation
	a.result.ReconciliationRequired = true
}

// finish записывает итог ровно один раз. Ошибка записи не меняет итог операции.
func (s *TransactionService) finish(ctx context.Context, a *attempt) (*model.Result, error) {
	if err := s.recorder.RecordTransaction(context.WithoutCancel(ctx), a.tx, a.status, a.reason); err != nil {
		fields := transactionFields(a.tx)
		fields["event"] = EventAuditGap
		fields["status"] = a.status
		fields["system_reason"] = a.reason
		s.logger.WithFields(fields).WithError(err).Error("Не удалось записать транзакцию в журнал")
		s.alert(EventAuditGap, fields)
		a.result.AuditGap = true
	}

	if a.status == model.TransactionStatusSuccessful {
		a.advance(model.StateRecordedSuccess)
		a.log.WithField("event", EventSuccessfulTransaction).Info("Транзакция успешно выполнена")
	} else {
		a.advance(model.StateRecordedFailure)
		a.log.WithFields(logrus.Fields{
			"event":         EventFailedTransaction,
			"system_reason": a.reason,
		}).Warn("Транзакция отклонена")
	}
	return a.result, a.err
}

func (s *TransactionService) alert(event string, fields logrus.Fields) {
	if s.alerter == nil {
		return
	}
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()
		if err := s.alerter.Alert(event, fields); err != nil {
			s.logger.WithError(err).WithField("event", event).Warn("Не удалось отправить оповещение")
		}
	}()
}

// WaitAlerts ждет отправки начатых оповещений, но не дольше ctx.
// Вызывается при остановке после server.Shutdown.
func (s *TransactionService) WaitAlerts(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.alerts.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("оповещения не отправлены до остановки: %w", ctx.Err())
	}
}

func transactionFields(tx *model.Transaction) logrus.Fields {
	return logrus.Fields{
		"transaction_id":   tx.ID,
		"transaction_type": tx.TransactionType,
		"account_number":   tx.AccountNumber,
		"to_account":       tx.ToAccount,
		"amount":           tx.Amount.String(),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	}
}
