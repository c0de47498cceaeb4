// loggen writes synthetic application log lines carrying PII, standing in for
// the upstream web service when exercising the sanitize pipeline.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var names = []string{"Jane Doe", "John Smith", "Ana Torres", "Luis Quispe", "Mei Chen"}

func main() {
	dir := flag.String("dir", envOr("RAW_LOG_DIR", "/var/log/app/raw"), "Directory to write into")
	file := flag.String("file", "app.log", "Log file name inside dir")
	concurrency := flag.Int("c", 4, "Number of concurrent writers")
	duration := flag.Duration("d", 10*time.Second, "How long to generate")
	rps := flag.Int("rps", 200, "Lines per second limit")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0755); err != nil {
		log.Fatalf("Failed to create %s: %v", *dir, err)
	}
	path := filepath.Join(*dir, *file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	log.Printf("Writing synthetic logs to %s", path)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		written atomic.Int64
	)
	w := bufio.NewWriter(f)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 50)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				line := syntheticLine()

				mu.Lock()
				_, err := w.WriteString(line)
				mu.Unlock()
				if err != nil {
					log.Printf("Write failed: %v", err)
					return
				}
				written.Add(1)
			}
		}()
	}

	wg.Wait()
	if err := w.Flush(); err != nil {
		log.Fatalf("Flush failed: %v", err)
	}

	log.Println("Generation finished.")
	log.Printf("Lines written: %d", written.Load())
	log.Printf("Actual rate: %.2f lines/s", float64(written.Load())/duration.Seconds())
}

func syntheticLine() string {
	name := names[rand.Intn(len(names))]
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	switch rand.Intn(3) {
	case 0:
		return fmt.Sprintf("%s login_attempt name=%s email=%s token=%s customer_id=%d ip=%s\n",
			time.Now().UTC().Format(time.RFC3339), name, email, token, 10000+rand.Intn(90000), randomIP())
	case 1:
		return fmt.Sprintf("%s profile_update email=%s phone=9%08d dni=%08d\n",
			time.Now().UTC().Format(time.RFC3339), email, rand.Intn(100000000), rand.Intn(100000000))
	default:
		return fmt.Sprintf("%s request_id=%s path=/health status=200\n",
			time.Now().UTC().Format(time.RFC3339), uuid.NewString())
	}
}

func randomIP() string {
	return fmt.Sprintf("%d.%d.%d.%d", 1+rand.Intn(223), rand.Intn(256), rand.Intn(256), 1+rand.Intn(254))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
