// Package seed populates an empty appointment collection with demo data so
// the server is immediately useful on first run. Every record goes through
// the appointment service, so seeded data obeys the same validation and
// conflict rules as user input.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/apptbook/apptbook/internal/domain/appointment"
)

// Options controls the volume of generated data.
type Options struct {
	// Random is the number of randomized appointments added on top of the
	// fixed demo set.
	Random int
	// Seed makes the randomized records reproducible when non-zero.
	Seed uint64
}

type demoRecord struct {
	title     string
	client    string
	email     string
	phone     string
	dayOffset int
	startHour int
	duration  time.Duration
	status    appointment.Status
	notes     string
}

var demoRecords = []demoRecord{
	{
		title: "Annual Physical Exam", client: "Alice Johnson",
		email: "alice@example.com", phone: "+1 555 100 2001",
		dayOffset: 1, startHour: 9, duration: time.Hour,
		status: appointment.StatusScheduled,
		notes:  "Bring previous lab results. Fasting required.",
	},
	{
		title: "Product Strategy Review", client: "Bob Martinez",
		email: "bob.m@acme.com", phone: "+1 555 200 3002",
		dayOffset: 2, startHour: 14, duration: 90 * time.Minute,
		status: appointment.StatusScheduled,
		notes:  "Review Q3 roadmap and discuss feature prioritisation.",
	},
	{
		title: "Tax Consultation", client: "Carol White",
		email: "carol.white@gmail.com", phone: "+1 555 300 4003",
		dayOffset: 3, startHour: 11, duration: time.Hour,
		status: appointment.StatusScheduled,
		notes:  "Bring W-2 and investment statements.",
	},
	{
		title: "Dental Cleaning", client: "David Lee",
		email: "david.lee@email.com", phone: "+1 555 400 5004",
		dayOffset: -3, startHour: 10, duration: 45 * time.Minute,
		status: appointment.StatusCompleted,
		notes:  "Follow-up: recommend whitening treatment.",
	},
	{
		title: "Legal Advice - Contract Review", client: "Emma Davis",
		email: "emma.davis@corp.io", phone: "+1 555 500 6005",
		dayOffset: -7, startHour: 15, duration: time.Hour,
		status: appointment.StatusCompleted,
		notes:  "NDA and service agreement reviewed. Sent amended copy.",
	},
	{
		title: "Career Coaching Session", client: "Frank Brown",
		email: "frank.b@hotmail.com", phone: "+1 555 600 7006",
		dayOffset: -2, startHour: 16, duration: time.Hour,
		status: appointment.StatusNoShow,
		notes:  "Client did not attend. Follow up by email.",
	},
}

// Demo seeds the collection if and only if it is currently empty, and
// returns the number of appointments created.
func Demo(ctx context.Context, svc *appointment.Service, logger zerolog.Logger, opts Options) (int, error) {
	existing, err := svc.List(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("check collection: %w", err)
	}
	if len(existing) > 0 {
		logger.Debug().Int("existing", len(existing)).Msg("collection not empty, skipping demo seed")
		return 0, nil
	}

	faker := gofakeit.New(opts.Seed)
	day := time.Now().Truncate(24 * time.Hour)
	created := 0

	for _, rec := range demoRecords {
		start := day.AddDate(0, 0, rec.dayOffset).Add(time.Duration(rec.startHour) * time.Hour)
		candidate := &appointment.Appointment{
			Title:       rec.title,
			ClientName:  rec.client,
			ClientEmail: rec.email,
			ClientPhone: rec.phone,
			StartTime:   start,
			EndTime:     start.Add(rec.duration),
			Status:      rec.status,
			Notes:       rec.notes,
		}
		if _, err := svc.Create(ctx, candidate); err != nil {
			logger.Warn().Err(err).Str("title", rec.title).Msg("skipping demo record")
			continue
		}
		created++
	}

	// Randomized extras, one per hour on days after the fixed set so they
	// never collide with it or each other.
	for i := 0; i < opts.Random; i++ {
		start := day.AddDate(0, 0, 7+i/6).Add(time.Duration(9+i%6) * time.Hour)
		candidate := &appointment.Appointment{
			Title:       faker.JobTitle() + " Consultation",
			ClientName:  faker.Name(),
			ClientEmail: faker.Email(),
			ClientPhone: faker.Phone(),
			StartTime:   start,
			EndTime:     start.Add(45 * time.Minute),
			Notes:       faker.Sentence(8),
		}
		if _, err := svc.Create(ctx, candidate); err != nil {
			logger.Warn().Err(err).Msg("skipping random record")
			continue
		}
		created++
	}

	logger.Info().Int("created", created).Msg("demo data seeded")
	return created, nil
}
