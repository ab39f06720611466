package importer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lavega/order-pipeline/app/events"
	"github.com/lavega/order-pipeline/models"
)

type OrderStore interface {
	Ping(ctx context.Context) error
	InsertOrder(ctx context.Context, order *models.Order) error
}

type BatchStore interface {
	CreateImportBatch(ctx context.Context, batch *models.ImportBatch) error
	ListImportBatches(ctx context.Context, limit int) ([]models.ImportBatch, error)
}

// OrderFailure is an order the store rejected for a reason other than a duplicate number.
type OrderFailure struct {
	OrderNumber string `json:"order_number"`
	Error       string `json:"error"`
}

// Summary is the complete observable result of one import.
type Summary struct {
	BatchID             uuid.UUID      `json:"batch_id"`
	Source              string         `json:"source"`
	Orders              int            `json:"orders"`
	New                 int            `json:"new"`
	Duplicate           int            `json:"duplicate"`
	Skipped             int            `json:"skipped"`
	Dropped             int            `json:"dropped"`
	NewOrders           []string       `json:"new_orders"`
	DuplicateOrders     []string       `json:"duplicate_orders"`
	MissingDeliveryDate []string       `json:"missing_delivery_date"`
	Errors              []string       `json:"errors"`
	Warnings            []string       `json:"warnings"`
	Failed              []OrderFailure `json:"failed"`
}

// Importer merges parsed exports into the order store. Every order is inserted on
// its own, so a batch interrupted half way can simply be imported again.
type Importer struct {
	parser    *Parser
	orders    OrderStore
	batches   BatchStore
	publisher events.Publisher
	now       func() time.Time
}

func NewImporter(parser *Parser, orders OrderStore, batches BatchStore, publisher events.Publisher) *Importer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Importer{
		parser:    parser,
		orders:    orders,
		batches:   batches,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ImportCSV decodes r and imports its rows. Records the decoder rejects are
// skipped and reported with the parser's row problems.
func (im *Importer) ImportCSV(ctx context.Context, source string, r io.Reader) (*Summary, error) {
	rows, rowErrs, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	return im.importRows(ctx, source, rows, rowErrs)
}

// Import parses rows and inserts each new order. Row and order problems are
// collected in the summary; only an unreachable store ends the batch early, in which
// case the summary holds what was committed before the failure.
func (im *Importer) Import(ctx context.Context, source string, rows []Row) (*Summary, error) {
	return im.importRows(ctx, source, rows, nil)
}

func (im *Importer) importRows(ctx context.Context, source string, rows []Row, rowErrs []*MalformedRowError) (*Summary, error) {
	if err := im.orders.Ping(ctx); err != nil {
		return nil, fmt.Errorf("import %s: %w", source, err)
	}

	parsed := im.parser.Parse(rows)
	skipped := append(append([]*MalformedRowError{}, rowErrs...), parsed.Errors...)
	slices.SortStableFunc(skipped, func(a, b *MalformedRowError) int {
		return cmp.Compare(a.Row, b.Row)
	})

	summary := &Summary{
		BatchID:             uuid.New(),
		Source:              source,
		Orders:              len(parsed.Orders),
		Skipped:             len(skipped),
		Dropped:             len(parsed.Dropped),
		NewOrders:           []string{},
		DuplicateOrders:     []string{},
		MissingDeliveryDate: []string{},
		Errors:              make([]string, 0, len(skipped)),
		Warnings:            append([]string{}, parsed.Warnings...),
		Failed:              []OrderFailure{},
	}
	for _, e := range skipped {
		summary.Errors = append(summary.Errors, e.Error())
	}

	importedAt := im.now()
	for i := range parsed.Orders {
		order := &parsed.Orders[i]
		order.Status = models.OrderStatusPending
		order.ImportedAt = importedAt

		err := im.orders.InsertOrder(ctx, order)
		switch {
		case err == nil:
			summary.New++
			summary.NewOrders = append(summary.NewOrders, order.OrderNumber)
			if !order.HasDeliveryDate() {
				summary.MissingDeliveryDate = append(summary.MissingDeliveryDate, order.OrderNumber)
			}
		case errors.Is(err, models.ErrOrderExists):
			summary.Duplicate++
			summary.DuplicateOrders = append(summary.DuplicateOrders, order.OrderNumber)
		case fatal(err):
			log.Printf("import %s aborted at order %s: %v", source, order.OrderNumber, err)
			im.record(context.WithoutCancel(ctx), summary)
			return summary, fmt.Errorf("import %s: order %s: %w", source, order.OrderNumber, err)
		default:
			log.Printf("import %s: order %s not stored: %v", source, order.OrderNumber, err)
			summary.Failed = append(summary.Failed, OrderFailure{OrderNumber: order.OrderNumber, Error: err.Error()})
		}
	}

	im.record(ctx, summary)
	return summary, nil
}

func (im *Importer) ListBatches(ctx context.Context, limit int) ([]models.ImportBatch, error) {
	return im.batches.ListImportBatches(ctx, limit)
}

// record keeps an audit row and notifies subscribers. Neither affects the outcome
// of the import.
func (im *Importer) record(ctx context.Context, summary *Summary) {
	batch := &models.ImportBatch{
		ID:                  summary.BatchID,
		Source:              summary.Source,
		NewCount:            summary.New,
		DuplicateCount:      summary.Duplicate,
		SkippedCount:        summary.Skipped,
		DroppedCount:        summary.Dropped,
		FailedCount:         len(summary.Failed),
		NewOrders:           summary.NewOrders,
		MissingDeliveryDate: summary.MissingDeliveryDate,
		CreatedAt:           im.now(),
	}
	if err := im.batches.CreateImportBatch(ctx, batch); err != nil {
		log.Printf("import %s: failed to record batch %s: %v", summary.Source, summary.BatchID, err)
	}

	if summary.New == 0 {
		return
	}
	if err := im.publisher.Publish(ctx, events.NewEvent(events.TypeOrdersImported, summary)); err != nil {
		log.Printf("import %s: failed to publish %s: %v", summary.Source, events.TypeOrdersImported, err)
	}
}

func fatal(err error) bool {
	return errors.Is(err, models.ErrStoreUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
