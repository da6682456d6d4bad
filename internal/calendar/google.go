package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/rehacentrum/booking-engine/pkg/logging"
)

var calendarTracer = otel.Tracer("rehacentrum.internal.calendar")

// GoogleConfig configures the Google Calendar adapter.
type GoogleConfig struct {
	CalendarID string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON []byte
	CredentialsFile string
	// Subject is the user impersonated through domain-wide delegation.
	Subject  string
	Location *time.Location
	// ClientOptions replace credential handling entirely when set.
	ClientOptions []option.ClientOption
}

// GoogleStore implements Store on the Google Calendar v3 API. The API client
// is built on first use, exactly once, even under concurrent callers.
type GoogleStore struct {
	cfg    GoogleConfig
	logger *logging.Logger

	once    sync.Once
	svc     *gcal.Service
	initErr error
}

// NewGoogleStore returns a lazily initialised adapter.
func NewGoogleStore(cfg GoogleConfig, logger *logging.Logger) (*GoogleStore, error) {
	if cfg.CalendarID == "" {
		return nil, errors.New("calendar: calendar id is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &GoogleStore{cfg: cfg, logger: logger}, nil
}

func (s *GoogleStore) service(ctx context.Context) (*gcal.Service, error) {
	s.once.Do(func() {
		// The client outlives the request that happened to build it.
		s.svc, s.initErr = s.newService(context.WithoutCancel(ctx))
		if s.initErr != nil {
			s.logger.Error("google calendar init failed", "error", s.initErr)
			return
		}
		s.logger.Info("google calendar client initialised", "calendar_id", s.cfg.CalendarID)
	})
	return s.svc, s.initErr
}

func (s *GoogleStore) newService(ctx context.Context) (*gcal.Service, error) {
	if len(s.cfg.ClientOptions) > 0 {
		return gcal.NewService(ctx, s.cfg.ClientOptions...)
	}
	creds := s.cfg.CredentialsJSON
	if len(creds) == 0 {
		if s.cfg.CredentialsFile == "" {
			return nil, errors.New("calendar: no google credentials configured")
		}
		var err error
		creds, err = os.ReadFile(s.cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("calendar: read credentials: %w", err)
		}
	}
	jwtCfg, err := google.JWTConfigFromJSON(creds, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("calendar: parse service account: %w", err)
	}
	jwtCfg.Subject = s.cfg.Subject
	return gcal.NewService(ctx, option.WithTokenSource(jwtCfg.TokenSource(ctx)))
}

// ListEvents returns single (expanded) events starting in [from, to).
func (s *GoogleStore) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	ctx, span := calendarTracer.Start(ctx, "calendar.google.list")
	defer span.End()
	span.SetAttributes(
		attribute.String("calendar.from", from.Format(time.RFC3339)),
		attribute.String("calendar.to", to.Format(time.RFC3339)),
	)

	svc, err := s.service(ctx)
	if err != nil {
		return nil, err
	}
	var events []Event
	call := svc.Events.List(s.cfg.CalendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)
	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			e, err := s.fromAPI(item)
			if err != nil {
				s.logger.Warn("skipping unparseable calendar event", "event_id", item.Id, "error", err)
				continue
			}
			// The API returns anything overlapping the range; timed
			// events must also start inside it.
			if !e.AllDay && (e.Start.Before(from) || !e.Start.Before(to)) {
				continue
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}
	span.SetAttributes(attribute.Int("calendar.count", len(events)))
	return events, nil
}

// CreateEvent inserts a timed event in the clinic timezone.
func (s *GoogleStore) CreateEvent(ctx context.Context, e NewEvent) (Event, error) {
	ctx, span := calendarTracer.Start(ctx, "calendar.google.insert")
	defer span.End()

	svc, err := s.service(ctx)
	if err != nil {
		return Event{}, err
	}
	loc := s.cfg.Location
	item := &gcal.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Start:       &gcal.EventDateTime{DateTime: e.Start.In(loc).Format(time.RFC3339), TimeZone: loc.String()},
		End:         &gcal.EventDateTime{DateTime: e.End.In(loc).Format(time.RFC3339), TimeZone: loc.String()},
		ColorId:     e.ColorID,
	}
	created, err := svc.Events.Insert(s.cfg.CalendarID, item).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return Event{}, fmt.Errorf("calendar: create event: %w", err)
	}
	span.SetAttributes(attribute.String("calendar.event_id", created.Id))
	return s.fromAPI(created)
}

// DeleteEvent removes an event; a missing event yields ErrEventNotFound.
func (s *GoogleStore) DeleteEvent(ctx context.Context, id string) error {
	ctx, span := calendarTracer.Start(ctx, "calendar.google.delete")
	defer span.End()
	span.SetAttributes(attribute.String("calendar.event_id", id))

	svc, err := s.service(ctx)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(s.cfg.CalendarID, id).Context(ctx).Do(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("calendar: delete event: %w", err)
	}
	return nil
}

func (s *GoogleStore) fromAPI(item *gcal.Event) (Event, error) {
	e := Event{ID: item.Id, Summary: item.Summary, Description: item.Description}
	var err error
	if e.Start, e.AllDay, err = s.parseTime(item.Start); err != nil {
		return Event{}, fmt.Errorf("start: %w", err)
	}
	if e.End, _, err = s.parseTime(item.End); err != nil {
		return Event{}, fmt.Errorf("end: %w", err)
	}
	return e, nil
}

func (s *GoogleStore) parseTime(dt *gcal.EventDateTime) (time.Time, bool, error) {
	if dt == nil {
		return time.Time{}, false, errors.New("missing time")
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return time.Time{}, false, err
		}
		return t.In(s.cfg.Location), false, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, dt.Date, s.cfg.Location)
	return t, true, err
}
