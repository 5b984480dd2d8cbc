package books

import (
	"bytes"
	"context"
	"database/sql"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	mysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"biblio-backend/internal/platform/apierr"
)

// fakeRepo はメモリ上の books テーブル。onLoan は貸出中の冊数
type fakeRepo struct {
	nextID int64
	byID   map[int64]*Book
	onLoan map[int64]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, byID: map[int64]*Book{}, onLoan: map[int64]int{}}
}

func (f *fakeRepo) List(_ context.Context, p Page) ([]Book, int64, error) {
	var out []Book
	for id := int64(1); id < f.nextID; id++ {
		if b, ok := f.byID[id]; ok {
			out = append(out, *b)
		}
	}
	total := int64(len(out))
	if p.Offset > len(out) {
		return []Book{}, total, nil
	}
	out = out[p.Offset:]
	if len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out, total, nil
}

func (f *fakeRepo) ListAvailable(context.Context) ([]Book, error) { return nil, nil }

func (f *fakeRepo) Get(_ context.Context, id int64) (*Book, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (f *fakeRepo) GetByISBN(_ context.Context, isbn string) (*Book, error) {
	for _, b := range f.byID {
		if b.ISBN == isbn {
			cp := *b
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRepo) Search(context.Context, string) ([]Book, error) { return nil, nil }

func (f *fakeRepo) Create(_ context.Context, b *Book) (int64, error) {
	for _, e := range f.byID {
		if e.ISBN == b.ISBN {
			return 0, &mysql.MySQLError{Number: 1062}
		}
	}
	if b.CategoryID == 999 {
		return 0, &mysql.MySQLError{Number: 1452}
	}
	cp := *b
	cp.ID = f.nextID
	f.byID[cp.ID] = &cp
	f.nextID++
	return cp.ID, nil
}

func (f *fakeRepo) Update(_ context.Context, b *Book, available *int) error {
	cur, ok := f.byID[b.ID]
	if !ok {
		return sql.ErrNoRows
	}
	n, err := resolveAvailable(cur, b.TotalCopies, f.onLoan[b.ID], available)
	if err != nil {
		return err
	}
	cp := *b
	cp.AvailableCopies = n
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeRepo) DeleteIfNoActiveLoans(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeRepo) AdjustAvailable(_ context.Context, id int64, delta int) error {
	b := f.byID[id]
	switch {
	case delta < 0 && b.AvailableCopies == 0:
		return apierr.Unavailable("book")
	case delta > 0 && b.AvailableCopies == b.TotalCopies:
		return apierr.Conflict("book already has all copies available")
	}
	b.AvailableCopies += delta
	f.onLoan[id] -= delta
	return nil
}

var ctx = context.Background()

func intp(n int) *int { return &n }

func TestCreateValidation(t *testing.T) {
	svc := newService(newFakeRepo())
	tests := []struct {
		name string
		in   BookRequest
	}{
		{"zero copies", BookRequest{ISBN: "1", Title: "T", Author: "A", CategoryID: 1}},
		{"available above total", BookRequest{ISBN: "1", Title: "T", Author: "A", CategoryID: 1, TotalCopies: 2, AvailableCopies: intp(3)}},
		{"negative available", BookRequest{ISBN: "1", Title: "T", Author: "A", CategoryID: 1, TotalCopies: 2, AvailableCopies: intp(-1)}},
		{"missing category", BookRequest{ISBN: "1", Title: "T", Author: "A", TotalCopies: 1}},
		{"blank title", BookRequest{ISBN: "1", Title: "  ", Author: "A", CategoryID: 1, TotalCopies: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument), err)
		})
	}
}

func TestCreateDefaultsAvailableAndMapsErrors(t *testing.T) {
	svc := newService(newFakeRepo())

	b, err := svc.Create(ctx, BookRequest{ISBN: "978-2-07-036822-8", Title: "L'Étranger", Author: "Camus", TotalCopies: 3, CategoryID: 1})
	require.NoError(t, err)
	assert.Equal(t, "9782070368228", b.ISBN)
	assert.Equal(t, 3, b.AvailableCopies)

	_, err = svc.Create(ctx, BookRequest{ISBN: "9782070368228", Title: "dup", Author: "x", TotalCopies: 1, CategoryID: 1})
	assert.True(t, apierr.Is(err, apierr.CodeConflict))

	_, err = svc.Create(ctx, BookRequest{ISBN: "42", Title: "t", Author: "a", TotalCopies: 1, CategoryID: 999})
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))

	got, err := svc.GetByISBN(ctx, "978 2 07 036822 8")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestAvailableCopiesStayInRange(t *testing.T) {
	svc := newService(newFakeRepo())
	b, err := svc.Create(ctx, BookRequest{ISBN: "1", Title: "T", Author: "A", TotalCopies: 1, CategoryID: 1})
	require.NoError(t, err)

	assert.True(t, apierr.Is(svc.IncrementAvailable(ctx, b.ID), apierr.CodeConflict))
	require.NoError(t, svc.DecrementAvailable(ctx, b.ID))
	assert.True(t, apierr.Is(svc.DecrementAvailable(ctx, b.ID), apierr.CodeUnavailable))
	require.NoError(t, svc.IncrementAvailable(ctx, b.ID))
	assert.True(t, apierr.Is(svc.DecrementAvailable(ctx, 77), apierr.CodeNotFound))
}

func TestUpdateKeepsCopiesOnLoan(t *testing.T) {
	svc := newService(newFakeRepo())
	in := BookRequest{ISBN: "9782253004226", Title: "Bel-Ami", Author: "Maupassant", TotalCopies: 3, CategoryID: 1}
	b, err := svc.Create(ctx, in)
	require.NoError(t, err)
	require.NoError(t, svc.DecrementAvailable(ctx, b.ID))
	require.NoError(t, svc.DecrementAvailable(ctx, b.ID))

	// タイトルだけ変更しても在庫は 1 のまま
	in.Title = "Bel-Ami (poche)"
	got, err := svc.Update(ctx, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Bel-Ami (poche)", got.Title)
	assert.Equal(t, 1, got.AvailableCopies)

	// 2冊追加すると在庫も 2 増える
	in.TotalCopies = 5
	got, err = svc.Update(ctx, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableCopies)

	// 貸出中の 2冊を下回る total は不可
	in.TotalCopies = 1
	_, err = svc.Update(ctx, b.ID, in)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument), err)

	// total - 貸出中 を超える available は不可
	in.TotalCopies = 3
	in.AvailableCopies = intp(2)
	_, err = svc.Update(ctx, b.ID, in)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument), err)

	in.AvailableCopies = intp(0)
	got, err = svc.Update(ctx, b.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)

	// 返却は引き続き +1 できる
	require.NoError(t, svc.IncrementAvailable(ctx, b.ID))

	_, err = svc.Update(ctx, 77, in)
	assert.True(t, apierr.Is(err, apierr.CodeNotFound))
}

func TestResolveAvailable(t *testing.T) {
	cur := &Book{TotalCopies: 3, AvailableCopies: 1}
	tests := []struct {
		name      string
		total     int
		active    int
		available *int
		want      int
		wantErr   bool
	}{
		{"unchanged total keeps stored", 3, 2, nil, 1, false},
		{"more copies", 4, 2, nil, 2, false},
		{"fewer copies", 2, 2, nil, 0, false},
		{"below copies on loan", 1, 2, nil, 0, true},
		{"explicit within range", 3, 2, intp(0), 0, false},
		{"explicit above free", 3, 2, intp(2), 0, true},
		{"stored count clamped to free", 3, 3, nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveAvailable(cur, tt.total, tt.active, tt.available)
			if tt.wantErr {
				assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument), err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListPaging(t *testing.T) {
	svc := newService(newFakeRepo())
	for _, isbn := range []string{"1", "2", "3"} {
		_, err := svc.Create(ctx, BookRequest{ISBN: isbn, Title: "T" + isbn, Author: "A", TotalCopies: 1, CategoryID: 1})
		require.NoError(t, err)
	}
	res, err := svc.List(ctx, Page{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, int64(3), res.Total)
	assert.Equal(t, 2, res.NextOffset)

	res, err = svc.List(ctx, Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 0, res.NextOffset)
}

func TestImportReportsPerRow(t *testing.T) {
	svc := newService(newFakeRepo())
	csvText := "\ufeffisbn,title,author,total_copies,category_id\n" +
		"111,Germinal,Zola,2,1\n" +
		"111,Germinal bis,Zola,1,1\n" +
		"222,Nana,Zola,deux,1\n" +
		"\n" +
		"333,Candide,Voltaire,1,999\n" +
		"444,Zadig,Voltaire,1,2\n"

	res, err := svc.Import(ctx, strings.NewReader(csvText), "utf-8")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 3, res.Failed)
	require.Len(t, res.Rows, 5)
	assert.NotNil(t, res.Rows[0].BookID)
	assert.Contains(t, *res.Rows[1].Error, "CONFLICT")
	assert.Contains(t, *res.Rows[2].Error, "total_copies")
	assert.Contains(t, *res.Rows[3].Error, "category")
	assert.Equal(t, "444", res.Rows[4].ISBN)
}

func TestImportLatin1(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	raw, err := charmap.ISO8859_1.NewEncoder().String("isbn,title,author,total_copies,category_id\n555,Les Misérables,Hugo,1,1\n")
	require.NoError(t, err)

	res, err := svc.Import(ctx, strings.NewReader(raw), "latin1")
	require.NoError(t, err)
	require.Equal(t, 1, res.Created)
	assert.Equal(t, "Les Misérables", repo.byID[*res.Rows[0].BookID].Title)
}

func TestImportRejectsBadHeaderAndCharset(t *testing.T) {
	svc := newService(newFakeRepo())
	_, err := svc.Import(ctx, strings.NewReader("title,isbn\n"), "")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	_, err = svc.Import(ctx, strings.NewReader(""), "")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
	_, err = svc.Import(ctx, strings.NewReader("x"), "ebcdic")
	assert.True(t, apierr.Is(err, apierr.CodeInvalidArgument))
}

func TestStoreDecrementGuard(t *testing.T) {
	conn, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	sm.ExpectExec(`UPDATE books SET available_copies = available_copies - 1 WHERE id = \? AND available_copies > 0`).
		WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, apierr.Is(Decrement(ctx, conn, 3), apierr.CodeUnavailable))

	sm.ExpectExec(`available_copies < total_copies`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, Increment(ctx, conn, 3))
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestStoreDeleteBookWithActiveLoan(t *testing.T) {
	conn, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	sm.ExpectBegin()
	sm.ExpectQuery(`FROM books WHERE id = \? FOR UPDATE`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "isbn", "title", "author", "total", "avail", "cat", "cname"}).
			AddRow(8, "1", "T", "A", 1, 0, 1, ""))
	sm.ExpectQuery(`SELECT COUNT\(\*\) FROM loans WHERE book_id = \?`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	sm.ExpectRollback()

	err = NewStore(conn).DeleteIfNoActiveLoans(ctx, 8)
	assert.True(t, apierr.Is(err, apierr.CodeHasActiveLoans))
	assert.NoError(t, sm.ExpectationsWereMet())
}

var bookCols = []string{"id", "isbn", "title", "author", "total", "avail", "cat", "cname"}

func TestStoreUpdateLocksAndCountsLoans(t *testing.T) {
	conn, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()
	store := NewStore(conn)

	sm.ExpectBegin()
	sm.ExpectQuery(`FROM books WHERE id = \? FOR UPDATE`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow(8, "1", "T", "A", 3, 1, 1, ""))
	sm.ExpectQuery(`SELECT COUNT\(\*\) FROM loans WHERE book_id = \?`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	sm.ExpectExec(`UPDATE books`).
		WithArgs("1", "T2", "A", 3, 1, int64(1), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sm.ExpectCommit()

	b := &Book{ID: 8, ISBN: "1", Title: "T2", Author: "A", TotalCopies: 3, CategoryID: 1}
	require.NoError(t, store.Update(ctx, b, nil))
	assert.Equal(t, 1, b.AvailableCopies)

	sm.ExpectBegin()
	sm.ExpectQuery(`FOR UPDATE`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow(8, "1", "T", "A", 3, 1, 1, ""))
	sm.ExpectQuery(`SELECT COUNT`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(2))
	sm.ExpectRollback()

	b.TotalCopies = 1
	assert.True(t, apierr.Is(store.Update(ctx, b, nil), apierr.CodeInvalidArgument))
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestStoreDeleteIdleBook(t *testing.T) {
	conn, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	sm.ExpectBegin()
	sm.ExpectQuery(`FROM books WHERE id = \? FOR UPDATE`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow(8, "1", "T", "A", 1, 1, 1, ""))
	sm.ExpectQuery(`SELECT COUNT\(\*\) FROM loans WHERE book_id = \?`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	sm.ExpectQuery(`FROM penalties p`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	sm.ExpectExec(`DELETE FROM books WHERE id = \?`).WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 1))
	sm.ExpectCommit()

	require.NoError(t, NewStore(conn).DeleteIfNoActiveLoans(ctx, 8))
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestStoreDeleteBookWithUnpaidPenalty(t *testing.T) {
	conn, sm, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	sm.ExpectBegin()
	sm.ExpectQuery(`FOR UPDATE`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows(bookCols).AddRow(8, "1", "T", "A", 1, 1, 1, ""))
	sm.ExpectQuery(`FROM loans WHERE book_id`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	sm.ExpectQuery(`p.status = 'UNPAID'`).WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	sm.ExpectRollback()

	err = NewStore(conn).DeleteIfNoActiveLoans(ctx, 8)
	assert.True(t, apierr.Is(err, apierr.CodeConflict), err)
	assert.NoError(t, sm.ExpectationsWereMet())
}

func TestHandlerImportMultipart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newService(newFakeRepo()))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "books.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("isbn,title,author,total_copies,category_id\n9,Ubu roi,Jarry,1,1\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/books/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created":1`)
}
