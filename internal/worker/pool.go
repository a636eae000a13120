package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"insightchat-backend/internal/insights"
	"insightchat-backend/internal/models"
)

const maxJobAttempts = 3

var errNoRecords = errors.New("dataset has no records")

type recordSource interface {
	FetchRecords(ctx context.Context, userID, fileID uuid.UUID) ([]models.Record, error)
}

type analysisSaver interface {
	SaveAnalysis(ctx context.Context, userID uuid.UUID, ins *models.DatasetInsights) error
}

type bootstrapper interface {
	BootstrapFile(ctx context.Context, userID, fileID uuid.UUID, ins *models.DatasetInsights) int
}

type publisher interface {
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

// Pool runs dataset analysis jobs pulled from Redis.
type Pool struct {
	redis       *redis.Client
	records     recordSource
	analyses    analysisSaver
	convs       bootstrapper
	pub         publisher
	opts        insights.Options
	workerCount int
	stopChan    chan struct{}

	// requeue schedules a failed job for another attempt.
	requeue func(job models.AnalysisJob, backoff time.Duration)
}

func NewPool(
	redisClient *redis.Client,
	records recordSource,
	analyses analysisSaver,
	convs bootstrapper,
	pub publisher,
	workerCount int,
) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	p := &Pool{
		redis:       redisClient,
		records:     records,
		analyses:    analyses,
		convs:       convs,
		pub:         pub,
		opts:        insights.DefaultOptions(),
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
	p.requeue = p.pushLater
	return p
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}

	log.Printf("[worker] started %d analysis workers", p.workerCount)
}

func (p *Pool) Stop() {
	select {
	case <-p.stopChan:
	default:
		close(p.stopChan)
	}
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("[worker] %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with a short timeout so Stop is noticed promptly
		result, err := p.redis.BLPop(ctx, 5*time.Second, models.AnalysisQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.AnalysisJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("[worker] %d: failed to parse job: %v", id, err)
			continue
		}

		lockKey := fmt.Sprintf("analysis_lock:%s", job.FileID)
		locked, err := p.redis.SetNX(ctx, lockKey, job.ID.String(), 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker is analyzing this file
		}

		log.Printf("[worker] %d: analyzing file %s (job %s)", id, job.FileID, job.ID)
		p.handle(ctx, job)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) handle(ctx context.Context, job models.AnalysisJob) {
	if err := p.process(ctx, job); err != nil {
		p.handleFailure(ctx, job, err)
	}
}

// process computes and stores insights for one file, then wakes every
// conversation waiting on it.
func (p *Pool) process(ctx context.Context, job models.AnalysisJob) error {
	records, err := p.records.FetchRecords(ctx, job.UserID, job.FileID)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	if len(records) == 0 {
		return errNoRecords
	}

	ins := insights.Analyze(job.FileID, records, p.opts)
	if err := p.analyses.SaveAnalysis(ctx, job.UserID, ins); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	n := p.convs.BootstrapFile(ctx, job.UserID, job.FileID, ins)

	p.pub.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type:    "analysis_ready",
		Payload: models.AnalysisReady{FileID: job.FileID},
	})

	log.Printf("[worker] analysis for file %s complete: %d rows, %d conversations ready", job.FileID, ins.RowCount, n)
	return nil
}

func (p *Pool) handleFailure(ctx context.Context, job models.AnalysisJob, err error) {
	job.RetryCount++

	if job.RetryCount < maxJobAttempts && !errors.Is(err, errNoRecords) {
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		log.Printf("[worker] job %s failed (attempt %d): %v, retrying in %s", job.ID, job.RetryCount, err, backoff)
		p.requeue(job, backoff)
		return
	}

	log.Printf("[worker] job %s failed permanently: %v", job.ID, err)
	p.pub.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "analysis_failed",
		Payload: models.AnalysisFailed{
			FileID:       job.FileID,
			ErrorCode:    "ANALYSIS_FAILED",
			ErrorMessage: "We couldn't analyze this dataset.",
		},
	})
}

func (p *Pool) pushLater(job models.AnalysisJob, backoff time.Duration) {
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	time.AfterFunc(backoff, func() {
		p.redis.RPush(context.Background(), models.AnalysisQueue, string(data))
	})
}
