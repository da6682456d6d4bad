// Command simulate fires concurrent bookings with fake patients at a running
// server to observe how the engine behaves when callers race for slots.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/rehacentrum/booking-engine/pkg/logging"
)

type options struct {
	BaseURL     string
	Secret      string
	Type        string
	Date        string
	Time        string
	Bookings    int
	Concurrency int
	Timeout     time.Duration
}

// report summarises one simulation run.
type report struct {
	Attempts  int            `json:"attempts"`
	Booked    int            `json:"booked"`
	Rejected  int            `json:"rejected"`
	Failed    int            `json:"failed"`
	PerSlot   map[string]int `json:"per_slot"`
	Duplicate []string       `json:"duplicate_slots,omitempty"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "simulate",
		Short:        "Race concurrent fake bookings against the booking webhook",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New("info")
			rep, err := run(cmd.Context(), opts, &http.Client{Timeout: opts.Timeout}, logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.BaseURL, "url", "http://localhost:8080", "Server base URL")
	f.StringVar(&opts.Secret, "secret", os.Getenv("WEBHOOK_JWT_SECRET"), "Webhook JWT secret; empty sends no token")
	f.StringVar(&opts.Type, "type", "vstupne_vysetrenie", "Appointment type")
	f.StringVar(&opts.Date, "date", "", "Date to book (YYYY-MM-DD)")
	f.StringVar(&opts.Time, "time", "", "Book every attempt at this HH:MM; empty spreads over free slots")
	f.IntVar(&opts.Bookings, "bookings", 20, "Number of booking attempts")
	f.IntVar(&opts.Concurrency, "concurrency", 8, "Parallel callers")
	f.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "Per-request timeout")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

type client struct {
	http   *http.Client
	url    string
	bearer string
}

func (c *client) call(ctx context.Context, action string, params map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(map[string]any{"action": action, "parameters": params})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusBadGateway {
		return nil, fmt.Errorf("%s: http %d: %s", action, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", action, err)
	}
	return out, nil
}

func token(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "simulate",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
}

// targets returns the HH:MM each attempt books.
func targets(ctx context.Context, c *client, opts options, faker *gofakeit.Faker) ([]string, error) {
	out := make([]string, opts.Bookings)
	if opts.Time != "" {
		for i := range out {
			out[i] = opts.Time
		}
		return out, nil
	}
	resp, err := c.call(ctx, "get_available_slots", map[string]any{"date": opts.Date, "appointment_type": opts.Type})
	if err != nil {
		return nil, err
	}
	raw, _ := resp["slots"].([]any)
	if len(raw) == 0 {
		return nil, fmt.Errorf("no free %s slots on %s", opts.Type, opts.Date)
	}
	free := make([]string, 0, len(raw))
	for _, s := range raw {
		if m, ok := s.(map[string]any); ok {
			if t, ok := m["time"].(string); ok {
				free = append(free, t)
			}
		}
	}
	for i := range out {
		out[i] = free[faker.Number(0, len(free)-1)]
	}
	return out, nil
}

type fakePatient struct {
	Name, Surname, Phone, Insurance string
}

func newFakePatient(faker *gofakeit.Faker) fakePatient {
	return fakePatient{
		Name:      faker.FirstName(),
		Surname:   faker.LastName(),
		Phone:     fmt.Sprintf("09%08d", faker.Number(10000000, 99999999)),
		Insurance: faker.RandomString([]string{"VšZP", "Dôvera", "Union"}),
	}
}

func run(ctx context.Context, opts options, httpClient *http.Client, logger *logging.Logger) (report, error) {
	if opts.Bookings <= 0 {
		return report{}, fmt.Errorf("bookings must be positive")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	bearer, err := token(opts.Secret)
	if err != nil {
		return report{}, fmt.Errorf("sign token: %w", err)
	}
	c := &client{http: httpClient, url: strings.TrimRight(opts.BaseURL, "/") + "/api/booking/webhook", bearer: bearer}
	faker := gofakeit.New(0)

	slots, err := targets(ctx, c, opts, faker)
	if err != nil {
		return report{}, err
	}
	patients := make([]fakePatient, len(slots))
	for i := range patients {
		patients[i] = newFakePatient(faker)
	}

	rep := report{Attempts: len(slots), PerSlot: map[string]int{}}
	var mu sync.Mutex
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				p := patients[i]
				resp, err := c.call(ctx, "book_appointment", map[string]any{
					"appointment_type": opts.Type,
					"date_time":        opts.Date + "T" + slots[i],
					"patient_name":     p.Name,
					"patient_surname":  p.Surname,
					"phone":            p.Phone,
					"insurance":        p.Insurance,
				})
				mu.Lock()
				switch {
				case err != nil:
					rep.Failed++
					logger.Warn("booking attempt failed", "slot", slots[i], "error", err)
				case resp["success"] == true:
					rep.Booked++
					rep.PerSlot[slots[i]]++
				default:
					rep.Rejected++
				}
				mu.Unlock()
			}
		}()
	}
	for i := range slots {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	for slot, n := range rep.PerSlot {
		if n > 1 {
			rep.Duplicate = append(rep.Duplicate, slot)
		}
	}
	sort.Strings(rep.Duplicate)
	logger.Info("simulation finished",
		"attempts", rep.Attempts,
		"booked", rep.Booked,
		"rejected", rep.Rejected,
		"failed", rep.Failed,
		"double_booked_slots", len(rep.Duplicate),
	)
	return rep, ctx.Err()
}
