package app

import (
	"fmt"
	"log"
	"sort"
	"time"

	"studymaster-service/internal/domain"
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateIdle State = iota
	StateActive
	StateCompleted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for _, candidate := range []State{StateIdle, StateActive, StateCompleted, StateClosed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// AnswerOutcome describes the effect of a single SelectAnswer call.
type AnswerOutcome struct {
	Correct bool `json:"correct"`
	// Repeated is true when a wrong option had already been tried on this question.
	Repeated bool `json:"repeated"`
}

// attempt is the mutable state of the question being played.
type attempt struct {
	selected           string
	hasSelection       bool
	wrong              map[string]struct{}
	answeredCorrectly  bool
	forfeited          bool
	timedOut           bool
	ticksRemaining     int
	ticksElapsed       int
	gracePeriodElapsed bool
}

func (a *attempt) finalized() bool {
	return a.answeredCorrectly || a.ticksRemaining <= 0
}

// Engine drives a quiz session through its questions. It is not safe for
// concurrent use; callers serialize access, see Session.
type Engine struct {
	policy     ScoringPolicy
	interval   time.Duration
	clock      Clock
	dispatch   func(func())
	onChange   func(Snapshot)
	onComplete func(scores []float64, mean float64)

	state     State
	questions []domain.Question
	index     int
	attempt   *attempt
	scores    *Aggregator

	sub Subscription
	gen uint64
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithTickInterval sets the wall-clock length of one tick. Defaults to one second.
func WithTickInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithDispatch routes clock callbacks through fn, which must run the given
// function on the goroutine that owns the engine.
func WithDispatch(fn func(func())) EngineOption {
	return func(e *Engine) { e.dispatch = fn }
}

// WithOnChange registers a hook invoked after every state transition.
func WithOnChange(fn func(Snapshot)) EngineOption {
	return func(e *Engine) { e.onChange = fn }
}

// WithOnComplete registers a hook invoked when the last question is advanced past.
func WithOnComplete(fn func(scores []float64, mean float64)) EngineOption {
	return func(e *Engine) { e.onComplete = fn }
}

func NewEngine(policy ScoringPolicy, clock Clock, opts ...EngineOption) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		policy:   policy,
		interval: time.Second,
		clock:    clock,
		dispatch: func(fn func()) { fn() },
		scores:   NewAggregator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Start begins the session. An empty question set completes immediately.
func (e *Engine) Start(questions []domain.Question) error {
	if e.state != StateIdle {
		return e.invalid("start")
	}
	if err := e.load(questions); err != nil {
		return err
	}
	e.begin()
	return nil
}

// Tick applies one clock tick to the active question.
func (e *Engine) Tick() error {
	if e.state != StateActive || e.attempt.finalized() {
		return e.invalid("tick")
	}
	e.tick()
	return nil
}

// SelectAnswer records an answer for the active question.
func (e *Engine) SelectAnswer(option string) (AnswerOutcome, error) {
	if e.state != StateActive {
		return AnswerOutcome{}, e.invalid("select answer")
	}
	a := e.attempt
	if a.finalized() {
		return AnswerOutcome{}, fmt.Errorf("%w: question %d is already finalized", domain.ErrInvalidState, e.index)
	}
	q := e.questions[e.index]
	if !q.HasOption(option) {
		return AnswerOutcome{}, fmt.Errorf("%w: %q", domain.ErrOptionNotFound, option)
	}

	a.selected = option
	a.hasSelection = true
	var outcome AnswerOutcome
	if option == q.CorrectAnswer {
		a.answeredCorrectly = true
		e.stopClock()
		outcome.Correct = true
	} else {
		_, outcome.Repeated = a.wrong[option]
		a.wrong[option] = struct{}{}
	}
	e.notify()
	return outcome, nil
}

// Forfeit zeroes the time budget of the active question without marking it correct.
func (e *Engine) Forfeit() error {
	if e.state != StateActive {
		return e.invalid("forfeit")
	}
	a := e.attempt
	if a.finalized() {
		return fmt.Errorf("%w: question %d is already finalized", domain.ErrInvalidState, e.index)
	}
	a.ticksRemaining = 0
	a.forfeited = true
	e.stopClock()
	e.notify()
	return nil
}

// Score returns the live score of the active question.
func (e *Engine) Score() (float64, error) {
	if e.state != StateActive {
		return 0, e.invalid("score")
	}
	return e.currentScore(), nil
}

// CanAdvance reports whether the active question is answered or out of time.
func (e *Engine) CanAdvance() bool {
	return e.state == StateActive && e.attempt.finalized()
}

// Advance records the active question's score and moves to the next question.
func (e *Engine) Advance() error {
	if !e.CanAdvance() {
		return e.invalid("advance")
	}
	e.scores.Record(e.currentScore())
	e.stopClock()
	e.index++
	if e.index >= len(e.questions) {
		e.complete()
		return nil
	}
	e.enterQuestion()
	e.notify()
	return nil
}

// Replay restarts a completed session on the same questions.
func (e *Engine) Replay() error {
	if e.state != StateCompleted {
		return e.invalid("replay")
	}
	e.begin()
	return nil
}

// ReplayWith restarts a completed session on a freshly fetched question set.
func (e *Engine) ReplayWith(questions []domain.Question) error {
	if e.state != StateCompleted {
		return e.invalid("replay")
	}
	if err := e.load(questions); err != nil {
		return err
	}
	e.begin()
	return nil
}

// Close stops the clock and discards session state. It is safe to call more than once.
func (e *Engine) Close() {
	if e.state == StateClosed {
		return
	}
	e.stopClock()
	e.attempt = nil
	e.state = StateClosed
	e.notify()
}

func (e *Engine) State() State { return e.state }

func (e *Engine) Index() int { return e.index }

// TimeBudget returns the remaining fraction of the active question's duration.
func (e *Engine) TimeBudget() float64 {
	if e.attempt == nil {
		return 0
	}
	return float64(e.attempt.ticksRemaining) / float64(e.policy.TotalTicks)
}

func (e *Engine) WrongCount() int {
	if e.attempt == nil {
		return 0
	}
	return len(e.attempt.wrong)
}

func (e *Engine) AnsweredCorrectly() bool {
	return e.attempt != nil && e.attempt.answeredCorrectly
}

func (e *Engine) Scores() []float64 { return e.scores.Scores() }

func (e *Engine) Mean() float64 { return e.scores.Mean() }

func (e *Engine) load(questions []domain.Question) error {
	for _, q := range questions {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	e.questions = make([]domain.Question, len(questions))
	copy(e.questions, questions)
	return nil
}

func (e *Engine) begin() {
	e.scores.Reset()
	e.index = 0
	if len(e.questions) == 0 {
		e.complete()
		return
	}
	e.state = StateActive
	e.enterQuestion()
	e.notify()
}

func (e *Engine) complete() {
	e.stopClock()
	e.attempt = nil
	e.state = StateCompleted
	if e.onComplete != nil {
		e.onComplete(e.scores.Scores(), e.scores.Mean())
	}
	e.notify()
}

func (e *Engine) enterQuestion() {
	e.attempt = &attempt{
		wrong:              make(map[string]struct{}),
		ticksRemaining:     e.policy.TotalTicks,
		gracePeriodElapsed: e.policy.GracePeriodTicks == 0,
	}
	e.startClock()
}

func (e *Engine) tick() {
	a := e.attempt
	a.ticksElapsed++
	if !a.gracePeriodElapsed && a.ticksElapsed >= e.policy.GracePeriodTicks {
		a.gracePeriodElapsed = true
	}
	a.ticksRemaining--
	if a.ticksRemaining <= 0 {
		a.ticksRemaining = 0
		a.timedOut = true
		// Expiry unlocks Advance; the score is capped at the floor.
		a.answeredCorrectly = true
		e.stopClock()
	}
	e.notify()
}

func (e *Engine) startClock() {
	e.stopClock()
	gen := e.gen
	e.sub = e.clock.Subscribe(e.interval, func() {
		e.dispatch(func() { e.clockTick(gen) })
	})
}

func (e *Engine) stopClock() {
	if e.sub != nil {
		e.sub.Cancel()
		e.sub = nil
	}
	e.gen++
}

// clockTick drops ticks from subscriptions that were cancelled while the tick was in flight.
func (e *Engine) clockTick(gen uint64) {
	if gen != e.gen {
		log.Printf("dropping stale tick for question %d", e.index)
		return
	}
	if e.state != StateActive || e.attempt.finalized() {
		return
	}
	e.tick()
}

// currentScore ignores elapsed time until the grace period is over. A
// forfeited question always scores with an empty budget.
func (e *Engine) currentScore() float64 {
	budget := e.TimeBudget()
	if !e.attempt.gracePeriodElapsed && e.attempt.ticksRemaining > 0 {
		budget = 1
	}
	return e.policy.Score(budget, len(e.attempt.wrong))
}

func (e *Engine) invalid(op string) error {
	return fmt.Errorf("%w: cannot %s while %s", domain.ErrInvalidState, op, e.state)
}

func (e *Engine) notify() {
	if e.onChange != nil {
		e.onChange(e.Snapshot())
	}
}

// Snapshot is a read-only view of the engine for presentation layers.
type Snapshot struct {
	State    State         `json:"state"`
	Index    int           `json:"index"`
	Total    int           `json:"total"`
	Question *QuestionView `json:"question,omitempty"`
	Attempt  *AttemptView  `json:"attempt,omitempty"`
	Scores   []float64     `json:"scores"`
	Mean     float64       `json:"mean"`
}

// QuestionView hides the correct answer until the question is finalized.
type QuestionView struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

type AttemptView struct {
	SelectedAnswer     *string  `json:"selectedAnswer,omitempty"`
	WrongAnswers       []string `json:"wrongAnswers"`
	AnsweredCorrectly  bool     `json:"answeredCorrectly"`
	Forfeited          bool     `json:"forfeited"`
	TimedOut           bool     `json:"timedOut"`
	TimeBudget         float64  `json:"timeBudget"`
	GracePeriodElapsed bool     `json:"gracePeriodElapsed"`
	Score              float64  `json:"score"`
	CanAdvance         bool     `json:"canAdvance"`
}

func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		State:  e.state,
		Index:  e.index,
		Total:  len(e.questions),
		Scores: e.scores.Scores(),
		Mean:   e.scores.Mean(),
	}
	if e.state != StateActive {
		return snap
	}

	q := e.questions[e.index]
	a := e.attempt
	view := &QuestionView{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Options: append([]string(nil), q.Options...),
	}
	if a.finalized() {
		view.CorrectAnswer = q.CorrectAnswer
	}
	snap.Question = view

	wrong := make([]string, 0, len(a.wrong))
	for opt := range a.wrong {
		wrong = append(wrong, opt)
	}
	sort.Strings(wrong)

	av := &AttemptView{
		WrongAnswers:       wrong,
		AnsweredCorrectly:  a.answeredCorrectly,
		Forfeited:          a.forfeited,
		TimedOut:           a.timedOut,
		TimeBudget:         e.TimeBudget(),
		GracePeriodElapsed: a.gracePeriodElapsed,
		Score:              e.currentScore(),
		CanAdvance:         a.finalized(),
	}
	if a.hasSelection {
		selected := a.selected
		av.SelectedAnswer = &selected
	}
	snap.Attempt = av
	return snap
}
