package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"examhub/internal/domain/courses"
	"examhub/internal/domain/paymentintents"
	"examhub/internal/domain/users"

	"github.com/google/uuid"
)

// Memory is an in-process implementation of the repositories, used for local
// development without postgres and by tests. WithEnrollmentTx works on a
// copy of the state and swaps it in only when fn succeeds, so it has the same
// all-or-nothing behaviour as the pgx container.
type Memory struct {
	mu    sync.Mutex
	state *memState
	Repos

	failUserSaves error
}

type memState struct {
	courses      map[uuid.UUID]*courses.Course
	exams        map[uuid.UUID]*courses.Exam
	users        map[uuid.UUID]*users.User
	intents      map[string]*paymentintents.Intent
	logs         []paymentintents.PaymentLog
	nextIntentID int64
}

func NewMemory() *Memory {
	m := &Memory{state: &memState{
		courses: map[uuid.UUID]*courses.Course{},
		exams:   map[uuid.UUID]*courses.Exam{},
		users:   map[uuid.UUID]*users.User{},
		intents: map[string]*paymentintents.Intent{},
	}}
	m.Repos = (&memView{m: m}).repos()
	return m
}

func (m *Memory) Repositories() Repos { return m.Repos }

func (m *Memory) WithEnrollmentTx(ctx context.Context, fn func(tx Repos) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := m.state.clone()
	if err := fn((&memView{m: m, tx: work}).repos()); err != nil {
		return err
	}
	m.state = work
	return nil
}

// FailUserSaves makes every users.Store.SaveSubscription call return err.
// Pass nil to clear.
func (m *Memory) FailUserSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failUserSaves = err
}

func (m *Memory) PutCourse(c *courses.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.courses[c.ID] = copyCourse(c)
}

func (m *Memory) PutExam(e *courses.Exam) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.state.exams[e.ID] = &cp
}

func (m *Memory) PutUser(u *users.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.users[u.ID] = copyUser(u)
}

// PutIntent stores p as-is, assigning an id when it has none.
func (m *Memory) PutIntent(p *paymentintents.Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		m.state.nextIntentID++
		p.ID = m.state.nextIntentID
	}
	cp := *p
	m.state.intents[p.TxRef] = &cp
}

func (m *Memory) Course(id uuid.UUID) *courses.Course {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.state.courses[id]; ok {
		return copyCourse(c)
	}
	return nil
}

func (m *Memory) User(id uuid.UUID) *users.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.state.users[id]; ok {
		return copyUser(u)
	}
	return nil
}

func (m *Memory) Intent(txRef string) *paymentintents.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.state.intents[txRef]; ok {
		cp := *p
		return &cp
	}
	return nil
}

func (m *Memory) Logs() []paymentintents.PaymentLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]paymentintents.PaymentLog(nil), m.state.logs...)
}

func (s *memState) clone() *memState {
	out := &memState{
		courses:      make(map[uuid.UUID]*courses.Course, len(s.courses)),
		exams:        make(map[uuid.UUID]*courses.Exam, len(s.exams)),
		users:        make(map[uuid.UUID]*users.User, len(s.users)),
		intents:      make(map[string]*paymentintents.Intent, len(s.intents)),
		logs:         append([]paymentintents.PaymentLog(nil), s.logs...),
		nextIntentID: s.nextIntentID,
	}
	for k, v := range s.courses {
		out.courses[k] = copyCourse(v)
	}
	for k, v := range s.exams {
		cp := *v
		out.exams[k] = &cp
	}
	for k, v := range s.users {
		out.users[k] = copyUser(v)
	}
	for k, v := range s.intents {
		cp := *v
		out.intents[k] = &cp
	}
	return out
}

func copyExams(in []courses.ExamPayment) []courses.ExamPayment {
	out := make([]courses.ExamPayment, len(in))
	copy(out, in)
	return out
}

func copyCourse(c *courses.Course) *courses.Course {
	cp := *c
	cp.SubscribedStudents = make([]courses.SubscribedStudent, len(c.SubscribedStudents))
	for i, s := range c.SubscribedStudents {
		s.ExamsPaid = copyExams(s.ExamsPaid)
		cp.SubscribedStudents[i] = s
	}
	return &cp
}

func copyUser(u *users.User) *users.User {
	cp := *u
	cp.SubscribedCourses = make([]users.SubscribedCourse, len(u.SubscribedCourses))
	for i, s := range u.SubscribedCourses {
		s.ExamsPaid = copyExams(s.ExamsPaid)
		cp.SubscribedCourses[i] = s
	}
	return &cp
}

// memView binds repositories either to the live state (tx == nil, each call
// takes the lock) or to a transaction's working copy (lock already held).
type memView struct {
	m  *Memory
	tx *memState
}

func (v *memView) with(fn func(st *memState) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.m.mu.Lock()
	defer v.m.mu.Unlock()
	return fn(v.m.state)
}

func (v *memView) repos() Repos {
	return Repos{
		Courses: memCourses{v},
		Users:   memUsers{v},
		Intents: memIntents{v},
		PayLogs: memLogs{v},
	}
}

type memCourses struct{ v *memView }

func (r memCourses) GetByID(ctx context.Context, id uuid.UUID) (*courses.Course, error) {
	var out *courses.Course
	err := r.v.with(func(st *memState) error {
		c, ok := st.courses[id]
		if !ok {
			return courses.ErrNotFound
		}
		out = copyCourse(c)
		return nil
	})
	return out, err
}

func (r memCourses) GetForUpdate(ctx context.Context, id uuid.UUID) (*courses.Course, error) {
	return r.GetByID(ctx, id)
}

func (r memCourses) GetExam(ctx context.Context, id uuid.UUID) (*courses.Exam, error) {
	var out *courses.Exam
	err := r.v.with(func(st *memState) error {
		e, ok := st.exams[id]
		if !ok {
			return courses.ErrNotFound
		}
		cp := *e
		out = &cp
		return nil
	})
	return out, err
}

func (r memCourses) SaveSubscription(ctx context.Context, courseID uuid.UUID, position int, s courses.SubscribedStudent) error {
	return r.v.with(func(st *memState) error {
		c, ok := st.courses[courseID]
		if !ok {
			return courses.ErrNotFound
		}
		s.ExamsPaid = copyExams(s.ExamsPaid)
		if i := c.FindStudent(s.StudentID); i >= 0 {
			c.SubscribedStudents[i] = s
		} else {
			c.SubscribedStudents = append(c.SubscribedStudents, s)
		}
		c.UpdatedAt = time.Now()
		return nil
	})
}

type memUsers struct{ v *memView }

func (r memUsers) GetByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var out *users.User
	err := r.v.with(func(st *memState) error {
		u, ok := st.users[id]
		if !ok {
			return users.ErrNotFound
		}
		out = copyUser(u)
		return nil
	})
	return out, err
}

func (r memUsers) SaveSubscription(ctx context.Context, userID uuid.UUID, position int, s users.SubscribedCourse) error {
	return r.v.with(func(st *memState) error {
		if err := r.v.m.failUserSaves; err != nil {
			return err
		}
		u, ok := st.users[userID]
		if !ok {
			return users.ErrNotFound
		}
		s.ExamsPaid = copyExams(s.ExamsPaid)
		if i := u.FindCourse(s.CourseID); i >= 0 {
			u.SubscribedCourses[i] = s
		} else {
			u.SubscribedCourses = append(u.SubscribedCourses, s)
		}
		u.UpdatedAt = time.Now()
		return nil
	})
}

type memIntents struct{ v *memView }

func (r memIntents) Create(ctx context.Context, in *paymentintents.Intent) (*paymentintents.Intent, error) {
	err := r.v.with(func(st *memState) error {
		if _, ok := st.intents[in.TxRef]; ok {
			return paymentintents.ErrDuplicate
		}
		st.nextIntentID++
		now := time.Now()
		in.ID = st.nextIntentID
		if in.Status == "" {
			in.Status = paymentintents.StatusPending
		}
		if in.Currency == "" {
			in.Currency = "ETB"
		}
		in.CreatedAt, in.UpdatedAt = now, now
		cp := *in
		st.intents[in.TxRef] = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (r memIntents) GetByTxRef(ctx context.Context, txRef string) (*paymentintents.Intent, error) {
	var out *paymentintents.Intent
	err := r.v.with(func(st *memState) error {
		p, ok := st.intents[txRef]
		if !ok {
			return paymentintents.ErrNotFound
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (r memIntents) byID(st *memState, id int64) *paymentintents.Intent {
	for _, p := range st.intents {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r memIntents) MarkPaid(ctx context.Context, id int64, receiptNo string, raw any) (bool, error) {
	changed := false
	err := r.v.with(func(st *memState) error {
		p := r.byID(st, id)
		if p == nil || p.Status == paymentintents.StatusPaid {
			return nil
		}
		now := time.Now()
		p.Status = paymentintents.StatusPaid
		p.ReceiptNo = &receiptNo
		p.PaidAt = &now
		p.UpdatedAt = now
		if paymentintents.HasPayload(raw) {
			p.GatewayResp = raw
		}
		changed = true
		return nil
	})
	return changed, err
}

func (r memIntents) MarkFailed(ctx context.Context, id int64, raw any) (bool, error) {
	changed := false
	err := r.v.with(func(st *memState) error {
		p := r.byID(st, id)
		if p == nil || p.Status != paymentintents.StatusPending {
			return nil
		}
		p.Status = paymentintents.StatusFailed
		p.UpdatedAt = time.Now()
		if paymentintents.HasPayload(raw) {
			p.GatewayResp = raw
		}
		changed = true
		return nil
	})
	return changed, err
}

func (r memIntents) sorted(st *memState, keep func(*paymentintents.Intent) bool) []*paymentintents.Intent {
	var out []*paymentintents.Intent
	for _, p := range st.intents {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memIntents) List(ctx context.Context, status string, since *time.Time, limit, offset int) ([]*paymentintents.Intent, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var page []*paymentintents.Intent
	total := 0
	err := r.v.with(func(st *memState) error {
		all := r.sorted(st, func(p *paymentintents.Intent) bool {
			if status != "" && string(p.Status) != status {
				return false
			}
			return since == nil || !p.CreatedAt.Before(*since)
		})
		// newest first, like the SQL ORDER BY
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
		total = len(all)
		if offset >= len(all) {
			return nil
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page = all[offset:end]
		return nil
	})
	return page, total, err
}

func (r memIntents) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*paymentintents.Intent, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []*paymentintents.Intent
	err := r.v.with(func(st *memState) error {
		out = r.sorted(st, func(p *paymentintents.Intent) bool {
			return p.Status == paymentintents.StatusPending && p.CreatedAt.Before(createdBefore)
		})
		if len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

type memLogs struct{ v *memView }

func (r memLogs) InsertPaymentLog(ctx context.Context, intentID int64, logType string, payload any) error {
	return r.v.with(func(st *memState) error {
		st.logs = append(st.logs, paymentintents.PaymentLog{
			ID:        int64(len(st.logs) + 1),
			IntentID:  intentID,
			LogType:   logType,
			Payload:   payload,
			CreatedAt: time.Now(),
		})
		return nil
	})
}
