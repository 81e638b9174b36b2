package server

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"yashubustudio/cropadvisor/advisor"
)

type recommendRequest struct {
	Nitrogen    *float64 `json:"nitrogen" validate:"omitempty,gte=0,lte=200"`
	Phosphorus  *float64 `json:"phosphorus" validate:"omitempty,gte=0,lte=200"`
	Potassium   *float64 `json:"potassium" validate:"omitempty,gte=0,lte=200"`
	Temperature *float64 `json:"temperature" validate:"omitempty,gte=0,lte=50"`
	Humidity    *float64 `json:"humidity" validate:"omitempty,gte=0,lte=100"`
	PH          *float64 `json:"ph" validate:"omitempty,gte=0,lte=14"`
	Rainfall    *float64 `json:"rainfall" validate:"omitempty,gte=0,lte=500"`
}

// measurements fills omitted readings with the form defaults.
func (r recommendRequest) measurements() advisor.Measurements {
	vals := advisor.DefaultMeasurements().Values()
	for i, p := range []*float64{r.Nitrogen, r.Phosphorus, r.Potassium, r.Temperature, r.Humidity, r.PH, r.Rainfall} {
		if p != nil {
			vals[i] = *p
		}
	}
	m, _ := advisor.MeasurementsFromValues(vals)
	return m
}

type askRequest struct {
	Question string `json:"question" validate:"required"`
}

type cropView struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Rank        int     `json:"rank"`
	Icon        string  `json:"icon"`
	Title       string  `json:"title"`
	Image       string  `json:"image,omitempty"`
}

type sessionView struct {
	ID           string                `json:"id"`
	Measurements advisor.Measurements  `json:"measurements"`
	Crops        []cropView            `json:"crops"`
	CreatedAt    time.Time             `json:"createdAt"`
	Explanations []advisor.Explanation `json:"explanations,omitempty"`
}

func (s *Server) view(sess *advisor.Session) sessionView {
	crops := make([]cropView, len(sess.Ranked))
	for i, r := range sess.Ranked {
		crops[i] = cropView{
			Label:       r.Label,
			Probability: r.Probability,
			Rank:        r.Rank,
			Icon:        advisor.Icon(r.Label),
			Title:       advisor.Title(r),
		}
		if path, ok := advisor.ImagePath(s.imagesDir, r.Label); ok {
			crops[i].Image = "/images/" + filepath.Base(path)
		}
	}
	return sessionView{
		ID:           sess.ID,
		Measurements: sess.Measurements,
		Crops:        crops,
		CreatedAt:    sess.CreatedAt,
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) fields(c echo.Context) error {
	return c.JSON(http.StatusOK, advisor.Fields)
}

// recommend handles POST /api/v1/recommend. ?explain=true adds explanations.
func (s *Server) recommend(c echo.Context) error {
	var req recommendRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	sess, err := s.advisor.Recommend(ctx, req.measurements())
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("recommend failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "classification failed")
	}
	s.sessions.Put(ClientKey(c), sess)

	out := s.view(sess)
	if c.QueryParam("explain") == "true" {
		out.Explanations = s.advisor.Explain(ctx, sess)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) current(c echo.Context) (*advisor.Session, error) {
	sess, ok := s.sessions.Get(ClientKey(c))
	if !ok || sess.Empty() {
		return nil, echo.NewHTTPError(http.StatusNotFound, "no recommendation yet")
	}
	return sess, nil
}

func (s *Server) session(c echo.Context) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.view(sess))
}

func (s *Server) explanations(c echo.Context) error {
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.advisor.Explain(c.Request().Context(), sess))
}

func (s *Server) ask(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	sess, err := s.current(c)
	if err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ans, ok := s.advisor.Ask(c.Request().Context(), sess, req.Question)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "question is empty")
	}
	return c.JSON(http.StatusOK, ans)
}
