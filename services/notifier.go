package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"time"

	"submission-portal-api/models"

	"github.com/segmentio/kafka-go"
)

// SubmissionNotifier is told about every admitted submission. Failures never
// affect the admission result.
type SubmissionNotifier interface {
	NotifySubmitted(ctx context.Context, submission models.Submission) error
}

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []SubmissionNotifier

func (m MultiNotifier) NotifySubmitted(ctx context.Context, submission models.Submission) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifySubmitted(ctx, submission); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SubmissionEvent is the JSON payload published for each new submission.
type SubmissionEvent struct {
	Type           string    `json:"type"`
	ID             string    `json:"id"`
	TeamName       string    `json:"teamName"`
	GithubLink     string    `json:"githubLink"`
	DeploymentLink string    `json:"deploymentLink"`
	Artifact       string    `json:"artifact"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes submission.created events.
type KafkaNotifier struct {
	writer MessageWriter
	topic  string
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaNotifierWithWriter(writer, topic)
}

func NewKafkaNotifierWithWriter(writer MessageWriter, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, topic: topic}
}

func (k *KafkaNotifier) NotifySubmitted(ctx context.Context, submission models.Submission) error {
	payload, err := json.Marshal(SubmissionEvent{
		Type:           "submission.created",
		ID:             submission.ID,
		TeamName:       submission.TeamName,
		GithubLink:     submission.GithubLink,
		DeploymentLink: submission.DeploymentLink,
		Artifact:       submission.ArtifactLabel(),
		SubmittedAt:    submission.SubmittedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Topic: k.topic,
		Key:   []byte(submission.ID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// Mailer is satisfied by *config.Mailer.
type Mailer interface {
	SendMail(to []string, subject, html string) error
}

var submissionMailTemplate = template.Must(template.New("submission").Parse(`<h2>New project submission</h2>
<table>
<tr><td><b>Team</b></td><td>{{.TeamName}}</td></tr>
<tr><td><b>GitHub</b></td><td><a href="{{.GithubLink}}">{{.GithubLink}}</a></td></tr>
<tr><td><b>Deployment</b></td><td><a href="{{.DeploymentLink}}">{{.DeploymentLink}}</a></td></tr>
<tr><td><b>Artifact</b></td><td>{{.ArtifactLabel}}</td></tr>
<tr><td><b>Submitted at</b></td><td>{{.SubmittedAt.Format "2006-01-02 15:04:05 MST"}}</td></tr>
</table>
<p>{{.Solution}}</p>`))

// MailNotifier e-mails organizers about each submission.
type MailNotifier struct {
	mailer Mailer
	to     []string
}

func NewMailNotifier(mailer Mailer, to []string) *MailNotifier {
	return &MailNotifier{mailer: mailer, to: to}
}

func (m *MailNotifier) NotifySubmitted(_ context.Context, submission models.Submission) error {
	var body bytes.Buffer
	if err := submissionMailTemplate.Execute(&body, &submission); err != nil {
		return fmt.Errorf("failed to render notification: %w", err)
	}
	subject := fmt.Sprintf("New submission: %s", submission.TeamName)
	if err := m.mailer.SendMail(m.to, subject, body.String()); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
