package cartlog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/storefront-cart/internal/pkg/interceptors/constants"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo reads the active span from ctx. Both fields are empty when
// the context carries no valid span.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds an Entry stamped with the trace and request ids found in ctx.
//
//	entry := cartlog.NewEntry(ctx, cartID, cartlog.ActionItemRemoved)
//	entry.ItemID = itemID
//	_ = repo.Save(ctx, entry)
func NewEntry(ctx context.Context, cartID string, action Action) *Entry {
	ti := ExtractTraceInfo(ctx)
	requestID, _ := ctx.Value(constants.ContextKeyRequestID).(string)

	return &Entry{
		CartID:    cartID,
		Action:    action,
		RequestID: requestID,
		TraceID:   ti.TraceID,
		SpanID:    ti.SpanID,
		At:        time.Now().UTC(),
	}
}
