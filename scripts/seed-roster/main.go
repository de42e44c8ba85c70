// Command seed-roster imports a class roster CSV into the students table
// and optionally provisions a teacher login. The CSV needs a header row of
// id,full_name,class_name.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/qrmark/qrmark-api/pkg/config"
	"github.com/qrmark/qrmark-api/pkg/database"
)

func main() {
	rosterPath := flag.String("roster", "", "path to roster csv (id,full_name,class_name)")
	teacherUser := flag.String("teacher", "", "teacher username to create (optional)")
	teacherPass := flag.String("password", "", "password for the teacher account")
	teacherName := flag.String("name", "", "display name for the teacher account")
	flag.Parse()

	if *rosterPath == "" && *teacherUser == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *rosterPath != "" {
		n, err := importRoster(ctx, db, *rosterPath)
		if err != nil {
			log.Fatalf("import roster: %v", err)
		}
		log.Printf("imported %d students from %s", n, *rosterPath)
	}

	if *teacherUser != "" {
		if *teacherPass == "" {
			log.Fatal("-password is required with -teacher")
		}
		if err := createTeacher(ctx, db, *teacherUser, *teacherPass, *teacherName); err != nil {
			log.Fatalf("create teacher: %v", err)
		}
		log.Printf("teacher %s ready", *teacherUser)
	}
}

func importRoster(ctx context.Context, db *sqlx.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 3 {
		return 0, fmt.Errorf("expected header id,full_name,class_name, got %v", header)
	}

	count := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}
		_, err = db.ExecContext(ctx,
			`INSERT INTO students (id, full_name, class_name)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, class_name = EXCLUDED.class_name`,
			row[0], row[1], row[2])
		if err != nil {
			return count, fmt.Errorf("row %d: %w", count+2, err)
		}
		count++
	}
	return count, nil
}

func createTeacher(ctx context.Context, db *sqlx.DB, username, password, fullName string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if fullName == "" {
		fullName = username
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO teachers (id, username, password_hash, full_name, active)
		 VALUES (gen_random_uuid(), $1, $2, $3, TRUE)
		 ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash, active = TRUE`,
		username, string(hash), fullName)
	return err
}
