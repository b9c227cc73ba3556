package analytics

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/joseph-ayodele/invoice-processor/constants"
	"github.com/joseph-ayodele/invoice-processor/internal/entity"
	"github.com/joseph-ayodele/invoice-processor/internal/repository"
)

// VendorStats aggregates invoices of one vendor.
type VendorStats struct {
	Vendor        string  `json:"vendor"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// DayCount is the number of invoices processed on one UTC day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Report summarises the latest revision of every stored invoice.
type Report struct {
	Total         int                             `json:"total"`
	ByStatus      map[constants.RoutingStatus]int `json:"by_status"`
	AutoRate      float64                         `json:"auto_approval_rate"`
	ManualRate    float64                         `json:"manual_rate"`
	AvgConfidence float64                         `json:"avg_confidence"`
	Vendors       []VendorStats                   `json:"vendors"`
	PerDay        []DayCount                      `json:"per_day"`
	GeneratedAt   time.Time                       `json:"generated_at"`
}

type Service struct {
	repo   repository.InvoiceRepository
	logger *slog.Logger
}

func NewService(repo repository.InvoiceRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Report(ctx context.Context, f repository.InvoiceFilter) (Report, error) {
	recs, err := s.repo.List(ctx, f)
	if err != nil {
		return Report{}, err
	}
	r := Summarize(recs)
	s.logger.Debug("analytics.report.ok", "invoices", r.Total)
	return r, nil
}

// Summarize computes a report over records; it does not deduplicate revisions.
func Summarize(recs []*entity.InvoiceRecord) Report {
	r := Report{
		ByStatus:    map[constants.RoutingStatus]int{},
		Vendors:     []VendorStats{},
		PerDay:      []DayCount{},
		GeneratedAt: time.Now().UTC(),
	}
	for _, st := range constants.AllStatuses {
		r.ByStatus[st] = 0
	}
	if len(recs) == 0 {
		return r
	}

	type acc struct {
		count int
		conf  float64
	}
	vendors := map[string]*acc{}
	days := map[string]int{}
	var confSum float64

	for _, rec := range recs {
		r.Total++
		r.ByStatus[rec.Status]++
		confSum += rec.Confidence

		name := rec.Vendor
		if name == "" {
			name = constants.UnknownVendor
		}
		a := vendors[name]
		if a == nil {
			a = &acc{}
			vendors[name] = a
		}
		a.count++
		a.conf += rec.Confidence

		days[rec.ProcessedAt.UTC().Format(time.DateOnly)]++
	}

	n := float64(r.Total)
	r.AutoRate = round4(float64(r.ByStatus[constants.StatusAutoApproved]) / n)
	r.ManualRate = round4(float64(r.ByStatus[constants.StatusManual]) / n)
	r.AvgConfidence = round4(confSum / n)

	for name, a := range vendors {
		r.Vendors = append(r.Vendors, VendorStats{
			Vendor:        name,
			Count:         a.count,
			AvgConfidence: round4(a.conf / float64(a.count)),
		})
	}
	sort.Slice(r.Vendors, func(i, j int) bool {
		if r.Vendors[i].Count != r.Vendors[j].Count {
			return r.Vendors[i].Count > r.Vendors[j].Count
		}
		return r.Vendors[i].Vendor < r.Vendors[j].Vendor
	})

	for day, c := range days {
		r.PerDay = append(r.PerDay, DayCount{Day: day, Count: c})
	}
	sort.Slice(r.PerDay, func(i, j int) bool { return r.PerDay[i].Day < r.PerDay[j].Day })
	return r
}

func round4(f float64) float64 { return math.Round(f*1e4) / 1e4 }
