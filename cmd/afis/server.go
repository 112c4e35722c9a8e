package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/high-horse/sourceafis"
	"github.com/high-horse/sourceafis/templates"
)

type server struct {
	engine  *sourceafis.Engine
	gallery *Gallery
	metrics *Metrics
	log     zerolog.Logger
}

func newServer(engine *sourceafis.Engine, gallery *Gallery, metrics *Metrics, log zerolog.Logger, bodyLimit int) *fiber.App {
	s := &server{engine: engine, gallery: gallery, metrics: metrics, log: log}

	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			metrics.Errors.WithLabelValues(fmt.Sprint(code)).Inc()
			return c.Status(code).JSON(ErrorResponse{
				Error: err.Error(),
			})
		},
	})

	// Middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${pid} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
		Output: log,
	}))
	app.Use(cors.New())

	app.Get("/health", s.health)
	app.Get("/metrics", metrics.Handler())
	app.Post("/verify", s.verify)
	app.Post("/identify", s.identify)
	app.Post("/persons", s.enroll)
	app.Delete("/persons/:id", s.remove)
	app.Post("/gallery/identify", s.identifyGallery)

	return app
}

func (s *server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"time":    time.Now(),
		"persons": s.gallery.Len(),
	})
}

func (s *server) verify(c *fiber.Ctx) error {
	start := time.Now()
	var req VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	ctx := s.requestContext(c)

	probe, err := s.decodePerson(ctx, req.Probe)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	candidate, err := s.decodePerson(ctx, req.Candidate)
	if err != nil {
		return fmt.Errorf("candidate: %w", err)
	}

	score, err := s.engine.Verify(ctx, probe, candidate)
	if err != nil {
		return toFiberError(err)
	}
	s.metrics.Observe("verify", start)
	s.metrics.Comparisons.WithLabelValues("verify", outcome(score > 0)).Inc()
	zerolog.Ctx(ctx).Info().Float64("score", score).Msg("verify")

	return c.JSON(VerifyResponse{
		Score:   score,
		Match:   score > 0,
		Elapsed: time.Since(start).String(),
	})
}

func (s *server) identify(c *fiber.Ctx) error {
	start := time.Now()
	var req IdentifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	ctx := s.requestContext(c)

	probe, err := s.decodePerson(ctx, req.Probe)
	if err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	candidates := make([]*sourceafis.Person, len(req.Candidates))
	index := make(map[*sourceafis.Person]int, len(req.Candidates))
	for i, payload := range req.Candidates {
		if candidates[i], err = s.decodePerson(ctx, payload); err != nil {
			return fmt.Errorf("candidate %d: %w", i, err)
		}
		candidates[i].ID = i
		index[candidates[i]] = i
	}

	found, err := s.engine.Identify(ctx, probe, candidates)
	if err != nil {
		return toFiberError(err)
	}
	s.metrics.Observe("identify", start)
	s.metrics.Comparisons.WithLabelValues("identify", outcome(len(found) > 0)).Inc()

	resp := IdentifyResponse{Matches: make([]IdentifyMatch, len(found))}
	for i, f := range found {
		resp.Matches[i] = IdentifyMatch{Index: index[f.Person], Score: f.Score}
	}
	resp.Elapsed = time.Since(start).String()
	return c.JSON(resp)
}

func (s *server) enroll(c *fiber.Ctx) error {
	var req PersonPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	ctx := s.requestContext(c)
	p, err := s.decodePerson(ctx, req)
	if err != nil {
		return err
	}
	if p.Len() == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "At least one fingerprint is required")
	}
	id := s.gallery.Enroll(p)
	s.metrics.GalleryPeople.Set(float64(s.gallery.Len()))
	zerolog.Ctx(ctx).Info().Str("id", id.String()).Int("fingerprints", p.Len()).Msg("enrolled person")
	return c.Status(fiber.StatusCreated).JSON(EnrollResponse{ID: id.String()})
}

func (s *server) remove(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid person id: "+err.Error())
	}
	if !s.gallery.Remove(id) {
		return fiber.NewError(fiber.StatusNotFound, "Unknown person "+id.String())
	}
	s.metrics.GalleryPeople.Set(float64(s.gallery.Len()))
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *server) identifyGallery(c *fiber.Ctx) error {
	start := time.Now()
	var req PersonPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	ctx := s.requestContext(c)
	probe, err := s.decodePerson(ctx, req)
	if err != nil {
		return err
	}

	ids, persons := s.gallery.Snapshot()
	index := make(map[*sourceafis.Person]int, len(persons))
	for i, p := range persons {
		index[p] = i
	}
	found, err := s.engine.Identify(ctx, probe, persons)
	if err != nil {
		return toFiberError(err)
	}
	s.metrics.Observe("gallery_identify", start)
	s.metrics.Comparisons.WithLabelValues("gallery_identify", outcome(len(found) > 0)).Inc()

	resp := IdentifyResponse{Matches: make([]IdentifyMatch, len(found))}
	for i, f := range found {
		j := index[f.Person]
		resp.Matches[i] = IdentifyMatch{Index: j, ID: ids[j].String(), Score: f.Score}
	}
	resp.Elapsed = time.Since(start).String()
	return c.JSON(resp)
}

// requestContext tags the request context with a logger carrying the request ID.
func (s *server) requestContext(c *fiber.Ctx) context.Context {
	rid, _ := c.Locals("requestid").(string)
	log := s.log.With().Str("request_id", rid).Logger()
	return log.WithContext(c.UserContext())
}

// decodePerson builds a person from templates, extracting those given only as images.
func (s *server) decodePerson(ctx context.Context, payload PersonPayload) (*sourceafis.Person, error) {
	p := &sourceafis.Person{}
	needsExtraction := false
	for i, fp := range payload.Fingerprints {
		finger, err := sourceafis.ParseFinger(fp.Finger)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("fingerprint %d: %v", i, err))
		}
		f := &sourceafis.Fingerprint{Finger: finger}
		switch {
		case fp.Template != "":
			data, err := decodeBase64(fp.Template)
			if err != nil {
				return nil, err
			}
			if f.Template, err = templates.Parse(data); err != nil {
				return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("fingerprint %d: %v", i, err))
			}
		case fp.Image != "":
			data, err := decodeBase64(fp.Image)
			if err != nil {
				return nil, err
			}
			if f.Image, err = sourceafis.LoadImageFromBytes(data); err != nil {
				return nil, fiber.NewError(fiber.StatusUnsupportedMediaType, fmt.Sprintf("fingerprint %d: %v", i, err))
			}
			needsExtraction = true
		default:
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("fingerprint %d: template or image is required", i))
		}
		if err := p.Add(f); err != nil {
			return nil, toFiberError(err)
		}
	}
	if needsExtraction {
		if err := s.engine.Extract(ctx, p); err != nil {
			return nil, toFiberError(err)
		}
	}
	return p, nil
}

// decodeBase64 accepts plain base64 or a data URL.
func decodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		parts := strings.SplitN(s, ",", 2)
		if len(parts) != 2 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid data URL")
		}
		s = parts[1]
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Failed to decode base64: "+err.Error())
	}
	return decoded, nil
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, sourceafis.ErrNoExtractor):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, sourceafis.ErrNilArgument),
		errors.Is(err, sourceafis.ErrMissingTemplate),
		errors.Is(err, sourceafis.ErrMissingImage),
		errors.Is(err, sourceafis.ErrOutOfRange):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return err
}

func outcome(matched bool) string {
	if matched {
		return "match"
	}
	return "no_match"
}
