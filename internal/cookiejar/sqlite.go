package cookiejar

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// queryCookieDB copies the database aside, opens it read-only and runs the
// given name/value/host query with "%"+domainFilter bound.
func queryCookieDB(dbPath, query, domainFilter string) ([]*http.Cookie, error) {
	tmp, err := copyToTemp(dbPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite", "file:"+tmp+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPathInvalid, err)
	}
	defer db.Close()

	rows, err := db.Query(query, "%"+domainFilter)
	if err != nil {
		return nil, fmt.Errorf("cookiejar: cookie database query: %w", err)
	}
	defer rows.Close()

	var cookies []*http.Cookie
	for rows.Next() {
		var name, value, host string
		if err := rows.Scan(&name, &value, &host); err != nil {
			return nil, fmt.Errorf("cookiejar: cookie row scan: %w", err)
		}
		if value == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Domain: host})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cookiejar: cookie rows: %w", err)
	}

	if len(cookies) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCookies, dbPath)
	}
	return cookies, nil
}

func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathInvalid, path)
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "cookies-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("cookiejar: temp copy: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("cookiejar: temp copy of %s: %w", filepath.Base(path), err)
	}
	return dst.Name(), nil
}
