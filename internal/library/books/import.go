package books

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"biblio-backend/internal/platform/apierr"
)

var importHeader = []string{"isbn", "title", "author", "total_copies", "category_id"}

// 受け付ける文字コード。Excel 書き出しの CSV は cp1252 / cp932 のことが多い
func decoderFor(charset string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		// BOM があれば読み飛ばす
		return unicode.UTF8BOM.NewDecoder(), nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "shift_jis", "sjis", "cp932":
		return japanese.ShiftJIS.NewDecoder(), nil
	}
	return nil, apierr.Invalid("unsupported charset: " + charset)
}

// Import は1行ずつ独立に登録する。行の失敗で全体は止めない。
func (s *Service) Import(ctx context.Context, r io.Reader, charset string) (ImportResponse, error) {
	dec, err := decoderFor(charset)
	if err != nil {
		return ImportResponse{}, err
	}
	cr := csv.NewReader(transform.NewReader(bufio.NewReader(r), dec))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return ImportResponse{}, apierr.Invalid("csv is empty")
	}
	if err != nil {
		return ImportResponse{}, apierr.Invalid("csv header unreadable: " + err.Error())
	}
	if err := checkHeader(head); err != nil {
		return ImportResponse{}, err
	}

	res := ImportResponse{Rows: []ImportRowResult{}}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		row := ImportRowResult{Line: line}
		if err != nil {
			row.Error = ptr(err.Error())
			res.add(row)
			continue
		}
		if isBlank(rec) {
			continue
		}
		req, perr := parseRecord(rec)
		row.ISBN = NormalizeISBN(req.ISBN)
		if perr != nil {
			row.Error = ptr(perr.Error())
			res.add(row)
			continue
		}
		b, cerr := s.Create(ctx, req)
		if cerr != nil {
			if !apierr.IsDomain(cerr) {
				log.Printf("[ERROR] book import line %d: %v", line, cerr)
			}
			row.Error = ptr(importErrMessage(cerr))
		} else {
			row.BookID = &b.ID
		}
		res.add(row)
	}
	return res, nil
}

func (r *ImportResponse) add(row ImportRowResult) {
	if row.Error != nil {
		r.Failed++
	} else {
		r.Created++
	}
	r.Rows = append(r.Rows, row)
}

func checkHeader(head []string) error {
	if len(head) != len(importHeader) {
		return apierr.Invalid("csv header must be " + strings.Join(importHeader, ","))
	}
	for i, h := range head {
		if !strings.EqualFold(strings.TrimSpace(h), importHeader[i]) {
			return apierr.Invalid("csv header must be " + strings.Join(importHeader, ","))
		}
	}
	return nil
}

func parseRecord(rec []string) (BookRequest, error) {
	if len(rec) != len(importHeader) {
		return BookRequest{}, fmt.Errorf("expected %d columns, got %d", len(importHeader), len(rec))
	}
	req := BookRequest{ISBN: rec[0], Title: rec[1], Author: rec[2]}
	total, err := strconv.Atoi(strings.TrimSpace(rec[3]))
	if err != nil {
		return req, fmt.Errorf("total_copies %q is not a number", rec[3])
	}
	cat, err := strconv.ParseInt(strings.TrimSpace(rec[4]), 10, 64)
	if err != nil {
		return req, fmt.Errorf("category_id %q is not a number", rec[4])
	}
	req.TotalCopies = total
	req.CategoryID = cat
	return req, nil
}

// 想定外エラーの中身はレスポンスに出さない
func importErrMessage(err error) string {
	if apierr.IsDomain(err) {
		return err.Error()
	}
	return "internal error"
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func ptr(s string) *string { return &s }
