package model

import "fmt"

// TransactionState - стадия обработки операции оркестратором
type TransactionState string

const (
	StateReceived        TransactionState = "received"
	StateValidating      TransactionState = "validating"
	StateRejected        TransactionState = "rejected"
	StateMutating        TransactionState = "mutating"
	StateCompensating    TransactionState = "compensating"
	StateFailed          TransactionState = "failed"
	StateRecordedSuccess TransactionState = "recorded-success"
	StateRecordedFailure TransactionState = "recorded-failure"
)

var transitions = map[TransactionState][]TransactionState{
	StateReceived:     {StateValidating},
	StateValidating:   {StateRejected, StateMutating, StateRecordedFailure},
	StateRejected:     {StateRecordedFailure},
	StateMutating:     {StateCompensating, StateRecordedSuccess, StateRecordedFailure},
	StateCompensating: {StateFailed},
	StateFailed:       {StateRecordedFailure},
}

// Terminal сообщает, что после состояния переходов нет
func (s TransactionState) Terminal() bool {
	return s == StateRecordedSuccess || s == StateRecordedFailure
}

// CanTransition проверяет допустимость перехода
func (s TransactionState) CanTransition(next TransactionState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StateMachine хранит текущее состояние одной операции
type StateMachine struct {
	current TransactionState
	history []TransactionState
}

func NewStateMachine() *StateMachine {
	return &StateMachine{current: StateReceived, history: []TransactionState{StateReceived}}
}

func (m *StateMachine) Current() TransactionState { return m.current }

func (m *StateMachine) History() []TransactionState {
	out := make([]TransactionState, len(m.history))
	copy(out, m.history)
	return out
}

// Transition переводит машину в следующее состояние
func (m *StateMachine) Transition(next TransactionState) error {
	if !m.current.CanTransition(next) {
		return fmt.Errorf("illegal transaction state transition %s -> %s", m.current, next)
	}
	m.current = next
	m.history = append(m.history, next)
	return nil
}
