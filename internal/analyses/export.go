package analyses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ats-backend/internal/jobs"
	"ats-backend/internal/shared/auth"
)

const (
	summarySheet = "Summary"
	rankedSheet  = "Ranked Candidates"
)

var rankedHeaders = []string{
	"Rank", "Candidate", "Resume", "Status", "Overall", "Skills", "Experience",
	"Education", "Semantic", "Matched Skills", "Missing Skills", "Model", "Completed At",
}

// ExportForJob renders the job's ranked analyses as an xlsx workbook.
func (s *Service) ExportForJob(ctx context.Context, actor auth.Principal, jobID string) ([]byte, string, error) {
	list, job, err := s.ListForJob(ctx, actor, jobID)
	if err != nil {
		return nil, "", err
	}
	payload, err := BuildWorkbook(job, list, s.now())
	if err != nil {
		return nil, "", fmt.Errorf("export job %s: %w", job.ID, err)
	}
	return payload, exportFileName(job), nil
}

// BuildWorkbook writes a summary sheet and a ranked candidates sheet.
// list must already be in ranking order.
func BuildWorkbook(job jobs.Job, list []Analysis, generatedAt time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(rankedSheet); err != nil {
		return nil, err
	}
	if err := writeSummary(f, job, list, generatedAt); err != nil {
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeRanked(f, list); err != nil {
		return nil, fmt.Errorf("ranked sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, job jobs.Job, list []Analysis, generatedAt time.Time) error {
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 50); err != nil {
		return err
	}

	completed, total := 0, 0
	for _, a := range list {
		if a.OverallScore != nil {
			completed++
			total += *a.OverallScore
		}
	}
	average := 0.0
	if completed > 0 {
		average = float64(total) / float64(completed)
	}

	rows := [][2]any{
		{"Job Title", job.Title},
		{"Company", job.Company},
		{"Experience Level", string(job.ExperienceLevel)},
		{"Status", job.Status},
		{"Generated", generatedAt.UTC().Format(time.RFC3339)},
		{"Analyses", len(list)},
		{"Scored", completed},
		{"Average Score", fmt.Sprintf("%.1f", average)},
	}
	for i, r := range rows {
		row := i + 1
		label := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(summarySheet, label, r[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, label, label, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), r[1]); err != nil {
			return err
		}
	}
	return nil
}

func writeRanked(f *excelize.File, list []Analysis) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	bands, err := scoreBandStyles(f)
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(rankedSheet, "A1", &rankedHeaders); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(rankedHeaders))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(rankedSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(rankedSheet, "B", "C", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(rankedSheet, "J", "K", 40); err != nil {
		return err
	}

	for i, a := range list {
		row := i + 2
		values := rankedRow(i+1, a)
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(rankedSheet, cell, &values); err != nil {
			return err
		}
		if a.OverallScore == nil {
			continue
		}
		if err := f.SetCellStyle(rankedSheet, cell, fmt.Sprintf("I%d", row), bands.pick(*a.OverallScore)); err != nil {
			return err
		}
	}
	return nil
}

func rankedRow(rank int, a Analysis) []any {
	values := []any{rank, a.CandidateID, a.ResumeFileName, a.Status}
	if a.Result == nil {
		return append(values, "", "", "", "", "", "", "", "", completedAtCell(a))
	}
	r := a.Result
	return append(values,
		r.OverallScore,
		r.SkillsMatch.Score,
		r.ExperienceMatch.Score,
		r.EducationMatch.Score,
		r.SemanticSimilarity.Score,
		strings.Join(r.SkillsMatch.MatchedSkills, ", "),
		strings.Join(r.SkillsMatch.MissingSkills, ", "),
		r.ModelVersion,
		completedAtCell(a),
	)
}

func completedAtCell(a Analysis) string {
	if a.CompletedAt == nil {
		return ""
	}
	return a.CompletedAt.UTC().Format(time.RFC3339)
}

type bandStyles struct {
	excellent, good, fair, poor int
}

func (b bandStyles) pick(score int) int {
	switch {
	case score >= 85:
		return b.excellent
	case score >= 70:
		return b.good
	case score >= 50:
		return b.fair
	default:
		return b.poor
	}
}

func scoreBandStyles(f *excelize.File) (bandStyles, error) {
	var out bandStyles
	for _, spec := range []struct {
		dst   *int
		color string
	}{
		{&out.excellent, "C6EFCE"},
		{&out.good, "DDEBF7"},
		{&out.fair, "FFEB9C"},
		{&out.poor, "FFC7CE"},
	} {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{spec.color}, Pattern: 1},
		})
		if err != nil {
			return bandStyles{}, err
		}
		*spec.dst = id
	}
	return out, nil
}

func exportFileName(job jobs.Job) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, strings.TrimSpace(job.Title))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "job"
	}
	return fmt.Sprintf("%s-%s-candidates.xlsx", slug, shortID(job.ID))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
