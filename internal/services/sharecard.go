package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sort"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/google/uuid"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/yungbote/certquiz-backend/internal/analysis"
	"github.com/yungbote/certquiz-backend/internal/platform/apierr"
	"github.com/yungbote/certquiz-backend/internal/platform/logger"
)

const (
	cardWidth    = 1200
	cardHeight   = 630
	cardMaxBars  = 5
	cardBarWidth = 640
)

var (
	cardBackground = color.NRGBA{R: 0x13, G: 0x1a, B: 0x2b, A: 0xff}
	cardTrack      = color.NRGBA{R: 0x2a, G: 0x34, B: 0x4a, A: 0xff}
	cardGood       = color.NRGBA{R: 0x34, G: 0xc7, B: 0x59, A: 0xff}
	cardFair       = color.NRGBA{R: 0xff, G: 0xb3, B: 0x40, A: 0xff}
	cardPoor       = color.NRGBA{R: 0xff, G: 0x5a, B: 0x5f, A: 0xff}
)

// QuizDataSource is satisfied by *analysis.Formatter.
type QuizDataSource interface {
	Format(ctx context.Context, attemptID uuid.UUID) (*analysis.QuizData, error)
}

type ShareCard struct {
	PNG []byte
	// URL is set only when the card was persisted to the bucket.
	URL string
}

type ShareCardService interface {
	Render(ctx context.Context, userID, attemptID uuid.UUID) (*ShareCard, error)
}

type shareCardService struct {
	log    *logger.Logger
	source QuizDataSource
	bucket BucketService
	title  font.Face
	score  font.Face
	body   font.Face
}

// NewShareCardService accepts a nil bucket.
func NewShareCardService(log *logger.Logger, source QuizDataSource, bucket BucketService) (ShareCardService, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse card font: %w", err)
	}
	return &shareCardService{
		log:    log.With("service", "ShareCardService"),
		source: source,
		bucket: bucket,
		title:  truetype.NewFace(f, &truetype.Options{Size: 44}),
		score:  truetype.NewFace(f, &truetype.Options{Size: 120}),
		body:   truetype.NewFace(f, &truetype.Options{Size: 28}),
	}, nil
}

func (s *shareCardService) Render(ctx context.Context, userID, attemptID uuid.UUID) (*ShareCard, error) {
	data, err := s.source.Format(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if data.User.ID != userID {
		return nil, apierr.NotFound("attempt_not_found", fmt.Errorf("quiz attempt %s not found", attemptID))
	}
	var buf bytes.Buffer
	if err := s.draw(&buf, data); err != nil {
		return nil, err
	}
	card := &ShareCard{PNG: buf.Bytes()}
	if s.bucket != nil {
		key := fmt.Sprintf("share_cards/%s/%s.png", userID, attemptID)
		if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(card.PNG), "image/png"); err != nil {
			s.log.Warn("share card upload failed", "attempt_id", attemptID, "error", err)
		} else {
			card.URL = s.bucket.GetPublicURL(key)
		}
	}
	return card, nil
}

func (s *shareCardService) draw(buf *bytes.Buffer, data *analysis.QuizData) error {
	dc := gg.NewContext(cardWidth, cardHeight)
	dc.SetColor(cardBackground)
	dc.Clear()

	dc.SetColor(color.White)
	dc.SetFontFace(s.title)
	dc.DrawStringWrapped(data.Quiz.Title, 60, 50, 0, 0, cardWidth-120, 1.2, gg.AlignLeft)

	pct := data.Attempt.Percentage
	dc.SetColor(bandColor(pct))
	dc.SetFontFace(s.score)
	dc.DrawString(fmt.Sprintf("%d%%", pct), 60, 290)

	dc.SetColor(color.White)
	dc.SetFontFace(s.body)
	dc.DrawString(fmt.Sprintf("%d of %d correct", data.Attempt.Score, data.Attempt.TotalQuestions), 60, 350)
	if data.Quiz.Certification != "" {
		dc.DrawString(data.Quiz.Certification, 60, 560)
	}

	y := 150.0
	for _, row := range topCategories(analysis.ScoreCategories(data), cardMaxBars) {
		dc.SetColor(color.White)
		dc.DrawString(row.name, 480, y)
		dc.SetColor(cardTrack)
		dc.DrawRoundedRectangle(480, y+14, cardBarWidth, 18, 9)
		dc.Fill()
		if w := float64(cardBarWidth*row.score.Percentage) / 100; w > 0 {
			dc.SetColor(bandColor(row.score.Percentage))
			dc.DrawRoundedRectangle(480, y+14, w, 18, 9)
			dc.Fill()
		}
		y += 80
	}

	if err := dc.EncodePNG(buf); err != nil {
		return fmt.Errorf("encode share card: %w", err)
	}
	return nil
}

type categoryRow struct {
	name  string
	score analysis.CategoryScore
}

// topCategories orders by question count, then name.
func topCategories(scores analysis.CategoryScores, limit int) []categoryRow {
	rows := make([]categoryRow, 0, len(scores))
	for name, sc := range scores {
		rows = append(rows, categoryRow{name: name, score: sc})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].score.Total != rows[j].score.Total {
			return rows[i].score.Total > rows[j].score.Total
		}
		return rows[i].name < rows[j].name
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

func bandColor(pct int) color.Color {
	switch {
	case pct >= 80:
		return cardGood
	case pct >= 60:
		return cardFair
	default:
		return cardPoor
	}
}
