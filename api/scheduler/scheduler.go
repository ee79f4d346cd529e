package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/linesmerrill/clinic-chat-api/config"
	"github.com/linesmerrill/clinic-chat-api/databases"
	templates "github.com/linesmerrill/clinic-chat-api/templates/html"
)

const (
	digestJob = "feedback_digest_job"
	purgeJob  = "anonymous_purge_job"

	// digestLimit bounds one email; the rest waits for the next run
	digestLimit = 200
)

// Mailer sends one email to one recipient
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlContent, plainText string) error
}

// SendGridMailer delivers email through SendGrid
type SendGridMailer struct {
	APIKey string
	From   string
}

// Send implements Mailer
func (m SendGridMailer) Send(ctx context.Context, to, subject, htmlContent, plainText string) error {
	from := mail.NewEmail("Clinic Chat", m.From)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), plainText, htmlContent)
	client := sendgrid.NewSendClient(m.APIKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

// Scheduler handles periodic background jobs for the chat service
type Scheduler struct {
	cron       *cron.Cron
	FeedbackDB databases.FeedbackDatabase
	SessionDB  databases.ChatSessionDatabase
	MessageDB  databases.ChatMessageDatabase
	LockDB     databases.SchedulerLockDatabase
	Mailer     Mailer
	Recipients []string
	AnonTTL    time.Duration
	Now        func() time.Time
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(conf config.Config, db databases.DatabaseHelper) *Scheduler {
	// Heroku sets DYNO to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	var mailer Mailer
	if conf.SendGridAPIKey != "" {
		mailer = SendGridMailer{APIKey: conf.SendGridAPIKey, From: conf.DigestFromEmail}
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		FeedbackDB: databases.NewFeedbackDatabase(db),
		SessionDB:  databases.NewChatSessionDatabase(db),
		MessageDB:  databases.NewChatMessageDatabase(db),
		LockDB:     databases.NewSchedulerLockDatabase(db),
		Mailer:     mailer,
		Recipients: conf.DigestRecipients,
		AnonTTL:    conf.AnonSessionTTL,
		Now:        time.Now,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Email the negative feedback digest daily at 7 AM UTC
	_, err := s.cron.AddFunc("0 7 * * *", func() { s.runLocked(digestJob, 10*time.Minute, s.digest) })
	if err != nil {
		zap.S().Errorw("failed to register digest job", "error", err)
	}

	_, err = s.cron.AddFunc("@hourly", func() { s.runLocked(purgeJob, 15*time.Minute, s.purge) })
	if err != nil {
		zap.S().Errorw("failed to register purge job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("chat scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("chat scheduler stopped")
}

// runLocked runs job on at most one instance at a time
func (s *Scheduler) runLocked(name string, ttl time.Duration, job func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), ttl/2)
	defer cancel()

	acquired, err := s.LockDB.TryAcquireLock(ctx, name, s.instanceID, ttl)
	if err != nil {
		zap.S().Errorw("failed to acquire scheduler lock", "job", name, "error", err)
		return
	}
	if !acquired {
		zap.S().Debugw("job already running on another instance, skipping", "job", name)
		return
	}
	defer s.LockDB.ReleaseLock(context.Background(), name, s.instanceID)

	job(ctx)
}

func (s *Scheduler) digest(ctx context.Context) {
	n, err := s.SendDigest(ctx)
	if err != nil {
		zap.S().Errorw("failed to send feedback digest", "error", err)
		return
	}
	zap.S().Infow("feedback digest complete", "items", n, "instance", s.instanceID)
}

func (s *Scheduler) purge(ctx context.Context) {
	n, err := s.PurgeAnonymousSessions(ctx)
	if err != nil {
		zap.S().Errorw("failed to purge anonymous sessions", "error", err)
		return
	}
	zap.S().Infow("anonymous session purge complete", "sessions", n, "instance", s.instanceID)
}

// SendDigest emails the undigested negative feedback to every recipient and
// marks it digested. Nothing is marked unless every email went out.
func (s *Scheduler) SendDigest(ctx context.Context) (int, error) {
	if s.Mailer == nil || len(s.Recipients) == 0 {
		zap.S().Debug("feedback digest not configured, skipping")
		return 0, nil
	}

	feedback, err := s.FeedbackDB.FindUndigestedNegative(ctx, digestLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to find feedback: %w", err)
	}
	if len(feedback) == 0 {
		return 0, nil
	}

	items := make([]templates.DigestItem, 0, len(feedback))
	ids := make([]string, 0, len(feedback))
	for _, f := range feedback {
		items = append(items, templates.DigestItem{
			SessionID: f.SessionID,
			MessageID: f.MessageID,
			Excerpt:   f.Excerpt,
			At:        f.CreatedAt,
		})
		ids = append(ids, f.MessageID)
	}

	subject := templates.FeedbackDigestSubject(len(items))
	htmlContent := templates.RenderFeedbackDigestEmail(items)
	plainText := templates.RenderFeedbackDigestText(items)
	for _, to := range s.Recipients {
		if err := s.Mailer.Send(ctx, to, subject, htmlContent, plainText); err != nil {
			return 0, fmt.Errorf("failed to email %s: %w", to, err)
		}
	}

	if _, err := s.FeedbackDB.MarkDigested(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to mark feedback digested: %w", err)
	}
	return len(items), nil
}

// PurgeAnonymousSessions deletes anonymous sessions idle for longer than
// AnonTTL together with their messages
func (s *Scheduler) PurgeAnonymousSessions(ctx context.Context) (int64, error) {
	if s.AnonTTL <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.AnonTTL)

	sessions, err := s.SessionDB.Find(ctx, bson.M{
		"anonymous": true,
		"updatedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find stale sessions: %w", err)
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.SessionID)
	}
	inSessions := bson.M{"sessionId": bson.M{"$in": ids}}

	// messages before their sessions
	if _, err := s.MessageDB.DeleteMany(ctx, inSessions); err != nil {
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}
	n, err := s.SessionDB.DeleteMany(ctx, bson.M{"sessionId": bson.M{"$in": ids}, "anonymous": true})
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions: %w", err)
	}
	return n, nil
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
