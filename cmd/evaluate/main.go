// Command evaluate scores an extracted PCA table against a ground-truth
// CSV from the command line, without running the server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"pcax/internal/csvexport"
	"pcax/internal/eval"
)

func main() {
	gtPath := flag.String("gt", "", "path to the ground-truth CSV")
	exPath := flag.String("extracted", "", "path to the extracted-table CSV")
	threshold := flag.Float64("threshold", 0, "override the acceptance threshold")
	jsonOut := flag.Bool("json", false, "print the full report as JSON")
	outDir := flag.String("out", "", "also write metrics.json and match CSVs into this directory")
	flag.Parse()

	if *gtPath == "" || *exPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	groundTruth, err := csvexport.ReadFile(*gtPath)
	if err != nil {
		log.Fatalf("loading ground truth: %v", err)
	}
	extracted, err := csvexport.ReadFile(*exPath)
	if err != nil {
		log.Fatalf("loading extracted table: %v", err)
	}

	w := eval.DefaultWeights()
	if *threshold > 0 {
		w.Threshold = *threshold
	}
	report := eval.Match(groundTruth, extracted, w)

	if *outDir != "" {
		if err := eval.WriteReportDir(*outDir, &report); err != nil {
			log.Fatalf("writing report: %v", err)
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("encoding report: %v", err)
		}
		return
	}

	m := report.Metrics
	fmt.Printf("ground truth rows: %d\n", m.GroundTruthCnt)
	fmt.Printf("extracted rows:    %d\n", m.ExtractedCnt)
	fmt.Printf("true positives:    %d\n", m.TruePositives)
	fmt.Printf("false positives:   %d\n", m.FalsePositives)
	fmt.Printf("false negatives:   %d\n", m.FalseNegatives)
	fmt.Printf("recall:    %.3f\n", m.Recall)
	fmt.Printf("precision: %.3f\n", m.Precision)
	fmt.Printf("f1:        %.3f\n", m.F1Score)
	fmt.Printf("accuracy:  %.3f\n", m.Accuracy)

	for _, fn := range report.FalseNegatives {
		fmt.Printf("MISSED: %s\n", fn.GroundTruthAddr)
	}
	for _, fp := range report.FalsePositives {
		fmt.Printf("EXTRA:  %s (%s)\n", fp.Address, fp.PCAName)
	}
}
