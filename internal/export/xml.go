// Package export writes the student list as an XML document and reads it back.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/Dan9191/fee-registry/internal/render"
	"github.com/beevik/etree"
)

// WriteXML writes records under a <students> root that carries the totals.
func WriteXML(w io.Writer, records []models.StudentRecord) error {
	stats := render.Summarize(records)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("students")
	root.CreateAttr("count", strconv.Itoa(stats.Count))
	root.CreateAttr("fee", formatTotal(stats.Fee))
	root.CreateAttr("paid", formatTotal(stats.Paid))
	root.CreateAttr("remaining", formatTotal(stats.Remaining))

	for _, s := range records {
		el := root.CreateElement("student")
		el.CreateAttr("id", s.ID)
		el.CreateElement("studentName").SetText(s.StudentName)
		el.CreateElement("studentId").SetText(s.StudentID)
		el.CreateElement("courseName").SetText(s.CourseName)
		el.CreateElement("fee").SetText(formatAmount(s.Fee))
		el.CreateElement("paid").SetText(formatAmount(s.Paid))
		el.CreateElement("remaining").SetText(formatAmount(s.Remaining))
		el.CreateElement("agreement").SetText(string(s.Agreement))
		el.CreateElement("date").SetText(s.Date)
		el.CreateElement("timestamp").SetText(s.CreatedAt.UTC().Format(time.RFC3339Nano))
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}

// ReadXML parses a document produced by WriteXML.
func ReadXML(r io.Reader) ([]models.StudentRecord, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %v", err)
	}
	root := doc.SelectElement("students")
	if root == nil {
		return nil, fmt.Errorf("students element not found in XML")
	}

	var records []models.StudentRecord
	for _, el := range root.SelectElements("student") {
		s := models.StudentRecord{
			ID:          el.SelectAttrValue("id", ""),
			StudentName: childText(el, "studentName"),
			StudentID:   childText(el, "studentId"),
			CourseName:  childText(el, "courseName"),
			Agreement:   models.Agreement(childText(el, "agreement")),
			Date:        childText(el, "date"),
		}
		var err error
		if s.Fee, err = childAmount(el, "fee"); err != nil {
			return nil, err
		}
		if s.Paid, err = childAmount(el, "paid"); err != nil {
			return nil, err
		}
		if s.Remaining, err = childAmount(el, "remaining"); err != nil {
			return nil, err
		}
		if ts := childText(el, "timestamp"); ts != "" {
			if s.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
				return nil, fmt.Errorf("failed to parse timestamp of %s: %v", s.StudentID, err)
			}
		}
		records = append(records, s)
	}
	return records, nil
}

// formatTotal rounds to cents for display; record amounts keep full precision.
func formatTotal(n float64) string {
	return strconv.FormatFloat(n, 'f', 2, 64)
}

func formatAmount(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return c.Text()
	}
	return ""
}

func childAmount(el *etree.Element, tag string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(childText(el, tag)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %v", tag, err)
	}
	return n, nil
}
