// Command archive2train converts decision parquet files into encoded
// training rows for the value network.
package main

import (
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/brensch/snekplan/training"
)

func main() {
	inDir := flag.String("in-dir", "", "Directory containing decision parquet files")
	outDir := flag.String("out-dir", "", "Output directory for training parquet files")
	flag.Parse()

	if *inDir == "" || *outDir == "" {
		log.Fatal("-in-dir and -out-dir are required")
	}
	absIn, _ := filepath.Abs(*inDir)
	absOut, _ := filepath.Abs(*outDir)
	if absIn == absOut {
		log.Fatal("out-dir must be different from in-dir")
	}
	if err := os.MkdirAll(absOut, 0o755); err != nil {
		log.Fatalf("create out-dir: %v", err)
	}

	var inputs []string
	_ = filepath.WalkDir(absIn, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == "tmp" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(strings.ToLower(d.Name()), ".parquet") {
			inputs = append(inputs, path)
		}
		return nil
	})
	if len(inputs) == 0 {
		log.Fatal("no parquet inputs found")
	}

	var files, rows, skipped int
	for _, in := range inputs {
		base := filepath.Base(in)
		out := filepath.Join(absOut, strings.TrimSuffix(base, filepath.Ext(base))+".train.parquet")
		n, s, err := training.ConvertFile(in, out)
		if err != nil {
			log.Printf("convert %s: %v", in, err)
			continue
		}
		skipped += s
		if n > 0 {
			files++
			rows += n
		}
	}
	log.Printf("converted %d/%d files: %d rows, %d skipped", files, len(inputs), rows, skipped)
	if files == 0 {
		os.Exit(1)
	}
}
