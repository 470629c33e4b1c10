package summary

import (
	"context"
	"math"
	"time"

	"yourloops-dashboard/internal/dataapi"
	"yourloops-dashboard/internal/domain"

	"go.uber.org/zap"
)

// DataSource is the part of the upstream API the fetcher uses.
type DataSource interface {
	SummaryV1(ctx context.Context, s dataapi.Session, userID string) (*domain.PatientDataSummary, error)
	DataRange(ctx context.Context, s dataapi.Session, userID string) (*domain.DataRange, error)
	TIR(ctx context.Context, s dataapi.Session, userID, start, end string) (*domain.TIRCount, error)
}

// Fetcher builds a patient's MedicalData from the upstream API.
type Fetcher struct {
	api          DataSource
	timings      *TimerMetrics
	useSummaryV1 bool
	logger       *zap.Logger
	now          func() time.Time
}

func NewFetcher(api DataSource, timings *TimerMetrics, useSummaryV1 bool, logger *zap.Logger) *Fetcher {
	return &Fetcher{api: api, timings: timings, useSummaryV1: useSummaryV1, logger: logger, now: time.Now}
}

// FetchSummary returns nil, nil when no data is available for the patient.
// Upstream failures are logged and degrade to the next strategy; only a
// cancelled ctx is returned as an error.
func (f *Fetcher) FetchSummary(ctx context.Context, s dataapi.Session, patient domain.User) (*domain.MedicalData, error) {
	start := f.now()
	elapsed := func() time.Duration { return f.now().Sub(start) }

	if f.useSummaryV1 {
		summary, err := f.api.SummaryV1(ctx, s, patient.ID)
		switch {
		case err == nil && summary == nil:
			return nil, nil
		case err == nil && summary.Valid():
			return &domain.MedicalData{LastFetchDate: f.now(), Summary: summary}, nil
		case err == nil:
			f.logger.Error("Invalid summary received", zap.String("patient_id", patient.ID), zap.Any("summary", summary))
		default:
			f.logger.Info("Summary v1 fetch failed", zap.String("patient_id", patient.ID), zap.Error(err))
		}
		f.timings.Add(elapsed(), ResultSummaryError)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	rng, err := f.api.DataRange(ctx, s, patient.ID)
	if err != nil {
		f.logger.Info("Data range fetch failed", zap.String("patient_id", patient.ID), zap.Error(err))
		f.timings.Add(elapsed(), ResultRangeError)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if rng == nil {
		return nil, nil
	}

	summary := &domain.PatientDataSummary{
		UserID:      patient.ID,
		RangeStart:  rng.Start,
		RangeEnd:    rng.End,
		ComputeDays: 1,
	}
	md := &domain.MedicalData{LastFetchDate: f.now(), Summary: summary, Range: rng}

	end, err := time.Parse(time.RFC3339, rng.End)
	if err != nil {
		f.logger.Info("Invalid range end", zap.String("patient_id", patient.ID), zap.String("range_end", rng.End))
		f.timings.Add(elapsed(), ResultTIRError)
		return md, nil
	}
	from := end.Add(-24 * time.Hour).UTC().Format(time.RFC3339)

	count, err := f.api.TIR(ctx, s, patient.ID, from, rng.End)
	if err != nil {
		f.logger.Info("TIR fetch failed", zap.String("patient_id", patient.ID), zap.Error(err))
		f.timings.Add(elapsed(), ResultTIRError)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return md, nil
	}

	total := count.Total()
	summary.NumBgValues = total
	if total > 0 {
		summary.PercentTimeInRange = roundPercent(count.Target, total)
		summary.PercentTimeBelowRange = roundPercent(count.Low+count.VeryLow, total)
	}
	md.ComputedTIR = count
	f.timings.Add(elapsed(), ResultOK)
	return md, nil
}

func roundPercent(n, total int) float64 {
	return math.Round(100 * float64(n) / float64(total))
}
