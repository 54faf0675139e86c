package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/keyhawk/internal/api"
	"github.com/telhawk-systems/keyhawk/internal/logging"
)

// DefaultSubjectPrefix is the subject prefix events are published under;
// the resource type is appended (keyhawk.audit.licenses).
const DefaultSubjectPrefix = "keyhawk.audit"

// Recorder turns mutating API calls into signed audit events. It implements
// api.Observer. Reads are not audited and publish failures never fail the
// call.
type Recorder struct {
	publisher Publisher
	signer    *EventSigner
	prefix    string
	logger    *logging.Logger
	now       func() time.Time
}

// NewRecorder creates a recorder. A nil signer leaves events unsigned.
func NewRecorder(publisher Publisher, signer *EventSigner, prefix string, logger *logging.Logger) *Recorder {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recorder{
		publisher: publisher,
		signer:    signer,
		prefix:    prefix,
		logger:    logger,
		now:       time.Now,
	}
}

// ObserveCall implements api.Observer.
func (r *Recorder) ObserveCall(ctx context.Context, info api.CallInfo) {
	switch info.Method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
	default:
		return
	}

	e := r.event(info)
	if r.signer != nil {
		if err := r.signer.SignEvent(&e); err != nil {
			r.logger.WarnContext(ctx, "failed to sign audit event", logging.Error(err))
			return
		}
	}

	subject := r.prefix + "." + subjectToken(e.Resource)
	if err := r.publisher.Publish(context.WithoutCancel(ctx), subject, e); err != nil {
		r.logger.WarnContext(ctx, "failed to publish audit event",
			logging.Resource(e.Resource),
			logging.Method(e.Method),
			logging.Error(err),
		)
	}
}

func (r *Recorder) event(info api.CallInfo) Event {
	resource, id, action := target(info.Endpoint)
	e := Event{
		ID:         uuid.New().String(),
		Timestamp:  r.now().UTC(),
		AccountID:  info.AccountID,
		Method:     info.Method,
		Endpoint:   info.Endpoint,
		Resource:   resource,
		ResourceID: id,
		Action:     action,
		Status:     info.StatusCode,
		Attempts:   info.Attempts,
		RequestID:  info.RequestID,
	}
	if info.Err != nil {
		e.Error = info.Err.Error()
	}
	return e
}
