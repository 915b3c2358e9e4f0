package enrollment

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"examhub/internal/domain/courses"
	"examhub/internal/domain/users"
	"examhub/internal/payments"
)

const DefaultCurrency = "ETB"

type BuilderConfig struct {
	Currency    string
	APIURL      string // public base URL of this service, used for the webhook
	FrontendURL string // optional; enables return_url
}

// Builder turns a purchase attempt into a gateway request. It only reads the
// records it is given.
type Builder struct {
	cfg BuilderConfig
	now func() time.Time
}

func NewBuilder(cfg BuilderConfig, now func() time.Time) *Builder {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	if now == nil {
		now = time.Now
	}
	return &Builder{cfg: cfg, now: now}
}

func (b *Builder) CallbackURL() string {
	return b.cfg.APIURL + "/api/v1/payments/webhook"
}

func (b *Builder) returnURL(txRef string) string {
	if b.cfg.FrontendURL == "" {
		return ""
	}
	return b.cfg.FrontendURL + "/payments/return?tx_ref=" + url.QueryEscape(txRef)
}

func checkPayer(u *users.User) error {
	if u == nil {
		return ErrUnauthenticated
	}
	if u.IsDeleted || !u.IsPayer() {
		return ErrForbidden
	}
	return nil
}

func checkCourse(c *courses.Course) error {
	if c == nil || c.IsDeleted {
		return fmt.Errorf("course: %w", ErrNotFound)
	}
	return nil
}

// alreadySubscribed is the duplicate-purchase guard. The course side is
// authoritative for the paid state; a paid mirror on the user side also
// counts.
func alreadySubscribed(u *users.User, c *courses.Course) bool {
	if c.HasPaidStudent(u.ID) {
		return true
	}
	if i := u.FindCourse(c.ID); i >= 0 {
		return u.SubscribedCourses[i].PaymentStatus == courses.StatusPaid
	}
	return false
}

func examAlreadyPaid(u *users.User, c *courses.Course, e *courses.Exam) bool {
	if i := c.FindStudent(u.ID); i >= 0 && c.SubscribedStudents[i].ExamPaid(e.ID) {
		return true
	}
	if i := u.FindCourse(c.ID); i >= 0 {
		return courses.ExamPaidIn(u.SubscribedCourses[i].ExamsPaid, e.ID)
	}
	return false
}

func (b *Builder) BuildCourseRequest(u *users.User, c *courses.Course) (payments.InitializeRequest, error) {
	if err := checkPayer(u); err != nil {
		return payments.InitializeRequest{}, err
	}
	if err := checkCourse(c); err != nil {
		return payments.InitializeRequest{}, err
	}
	if c.Price <= 0 {
		return payments.InitializeRequest{}, invalid("price", "course price must be positive")
	}
	if alreadySubscribed(u, c) {
		return payments.InitializeRequest{}, ErrDuplicatePurchase
	}

	txRef := payments.CourseTxRef(c.ID, b.now())
	title := c.Code
	if title == "" {
		title = c.Name
	}
	return b.request(u, txRef, c.Price,
		title,
		"Payment for course "+c.Name,
		map[string]string{
			"courseId": c.ID.String(),
			"userId":   u.ID.String(),
		}), nil
}

func (b *Builder) BuildExamRequest(u *users.User, c *courses.Course, e *courses.Exam) (payments.InitializeRequest, error) {
	if err := checkPayer(u); err != nil {
		return payments.InitializeRequest{}, err
	}
	if err := checkCourse(c); err != nil {
		return payments.InitializeRequest{}, err
	}
	if e == nil || e.IsDeleted || e.CourseID != c.ID {
		return payments.InitializeRequest{}, fmt.Errorf("exam: %w", ErrNotFound)
	}
	if e.Price <= 0 {
		return payments.InitializeRequest{}, invalid("price", "exam price must be positive")
	}
	if alreadySubscribed(u, c) || examAlreadyPaid(u, c, e) {
		return payments.InitializeRequest{}, ErrDuplicatePurchase
	}

	txRef := payments.ExamTxRef(e.ID, b.now())
	return b.request(u, txRef, e.Price,
		e.Title,
		"Payment for exam "+e.Title+" in "+c.Name,
		map[string]string{
			"courseId": c.ID.String(),
			"userId":   u.ID.String(),
			"examId":   e.ID.String(),
		}), nil
}

func (b *Builder) request(u *users.User, txRef string, price float64, title, desc string, meta map[string]string) payments.InitializeRequest {
	first, last := payments.SplitName(u.Name)
	title = payments.TruncateTitle(payments.SanitizeDescription(title))
	if title == "" {
		title = "Course Payment"
	}
	return payments.InitializeRequest{
		Amount:      payments.RoundAmount(price),
		Currency:    b.cfg.Currency,
		Email:       u.Email,
		FirstName:   first,
		LastName:    last,
		TxRef:       txRef,
		CallbackURL: b.CallbackURL(),
		ReturnURL:   b.returnURL(txRef),
		Customization: payments.Customization{
			Title:       title,
			Description: payments.SanitizeDescription(desc),
		},
		Meta: meta,
	}
}
