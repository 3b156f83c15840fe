// internal/notifier/notifier.go
package notifier

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "marketplace-workers/internal/common/errors"
	"marketplace-workers/internal/common/logger"
	"marketplace-workers/internal/common/metrics"
	"marketplace-workers/internal/models"
	"marketplace-workers/internal/store"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Repository is the storage the notifier reads recipients from and writes
// notification rows to.
type Repository interface {
	GetUserForRef(ctx context.Context, ref string) (*models.User, error)
	InsertNotification(ctx context.Context, n *models.Notification) error
}

type Notifier struct {
	config    *Config
	repo      Repository
	redis     *redis.Client
	snsClient SNSService
	sesClient SESService
	logger    logger.Logger
}

// New builds a notifier. redis, snsClient and sesClient may be nil; the
// matching step is then skipped.
func New(config *Config, repo Repository, rdb *redis.Client, snsClient SNSService, sesClient SESService, log logger.Logger) *Notifier {
	return &Notifier{
		config:    config,
		repo:      repo,
		redis:     rdb,
		snsClient: snsClient,
		sesClient: sesClient,
		logger:    log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// Notify delivers msg once per DedupKey within the configured TTL. A nil
// return means the message was delivered, stored or suppressed as a repeat.
// A failed attempt gives its dedup claim back so a retry is not suppressed.
func (n *Notifier) Notify(ctx context.Context, msg Message) (err error) {
	ctx, cancel := context.WithTimeout(ctx, n.config.Timeout)
	defer cancel()

	claimed, duplicate := n.claim(ctx, msg.DedupKey)
	if duplicate {
		metrics.NotificationsSent.WithLabelValues(ChannelInApp, "deduplicated").Inc()
		n.logger.Debug("notification suppressed", map[string]interface{}{
			"dedupKey": msg.DedupKey,
		})
		return nil
	}
	if claimed {
		defer func() {
			if err != nil {
				n.release(ctx, msg.DedupKey)
			}
		}()
	}

	user, err := n.repo.GetUserForRef(ctx, msg.UserRef)
	if errors.Is(err, store.ErrNotFound) {
		n.logger.Warn("recipient not found", map[string]interface{}{
			"userRef": msg.UserRef,
			"type":    msg.Type,
		})
		return nil
	}
	if err != nil {
		return apperrors.NewDatabaseQueryFailedError("get notification recipient", err)
	}

	record := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Type:      msg.Type,
		Channel:   ChannelInApp,
		Title:     msg.Title,
		Body:      msg.Body,
		Status:    StatusStored,
		Data:      msg.Data,
		CreatedAt: time.Now().UTC(),
	}

	var sendErr error
	if n.config.PushEnabled && n.snsClient != nil && user.PushEndpoint != "" {
		record.Channel = ChannelPush
		if err := n.sendPush(ctx, user.PushEndpoint, msg); err != nil {
			sendErr = apperrors.NewNotificationSendFailedError(ChannelPush, err)
			record.Status = StatusFailed
		} else {
			record.Status = StatusSent
		}
		metrics.NotificationsSent.WithLabelValues(ChannelPush, record.Status).Inc()
	}

	if n.config.EmailEnabled && n.sesClient != nil && user.Email != "" {
		status := StatusSent
		if err := n.sendEmail(ctx, user.Email, msg.Title, msg.Body); err != nil {
			status = StatusFailed
			if sendErr == nil {
				sendErr = apperrors.NewNotificationSendFailedError(ChannelEmail, err)
			}
		}
		if record.Channel == ChannelInApp {
			record.Channel = ChannelEmail
			record.Status = status
		}
		metrics.NotificationsSent.WithLabelValues(ChannelEmail, status).Inc()
	}

	if err := n.repo.InsertNotification(ctx, record); err != nil {
		if sendErr != nil {
			return sendErr
		}
		return apperrors.NewDatabaseUpdateFailedError("insert notification", err)
	}

	if sendErr == nil {
		n.logger.Info("notification delivered", map[string]interface{}{
			"notificationId": record.ID,
			"userId":         user.ID,
			"type":           msg.Type,
			"channel":        record.Channel,
			"status":         record.Status,
		})
	}
	return sendErr
}

// claim takes key in Redis. duplicate is set when another send already holds
// it. Any Redis failure lets the send proceed unclaimed.
func (n *Notifier) claim(ctx context.Context, key string) (claimed, duplicate bool) {
	if key == "" || n.redis == nil {
		return false, false
	}
	ok, err := n.redis.SetNX(ctx, key, 1, n.config.DedupTTL).Result()
	if err != nil {
		n.logger.Warn("dedup check failed, sending anyway", map[string]interface{}{
			"dedupKey": key,
			"error":    err,
		})
		return false, false
	}
	return ok, !ok
}

func (n *Notifier) release(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := n.redis.Del(ctx, key).Err(); err != nil {
		n.logger.Warn("failed to release dedup key", map[string]interface{}{
			"dedupKey": key,
			"error":    err,
		})
	}
}

func (n *Notifier) sendPush(ctx context.Context, endpoint string, msg Message) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(endpoint),
		Subject:   aws.String(msg.Title),
		Message:   aws.String(msg.Body),
	})
	return err
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	return err
}
