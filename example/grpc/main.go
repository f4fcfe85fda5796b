package main

import (
	"context"
	"fmt"
	"log"
	"time"

	appgrpc "github.com/stephengilbert1/Transformer-Dashboard-Fullstack/internal/grpc"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func main() {
	conn, err := grpc.NewClient("localhost:9090",
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("Failed to close connection: %v", err)
		}
	}()

	client := appgrpc.NewTransformerMonitorClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Тест 1: RecordReading
	fmt.Println("=== Test 1: RecordReading ===")
	testRecordReading(ctx, client)

	// Тест 2: ListSummaries
	fmt.Println("\n=== Test 2: ListSummaries ===")
	testListSummaries(ctx, client)

	// Тест 3: GetTransformerDetail
	fmt.Println("\n=== Test 3: GetTransformerDetail ===")
	testGetTransformerDetail(ctx, client)

	// Тест 4: Ошибки валидации
	fmt.Println("\n=== Test 4: Validation Errors ===")
	testValidationErrors(ctx, client)
}

func printError(err error) {
	if st, ok := status.FromError(err); ok {
		log.Printf("gRPC error: %s (code: %s)", st.Message(), st.Code())
	} else {
		log.Printf("Error: %v", err)
	}
}

func testRecordReading(ctx context.Context, client *appgrpc.TransformerMonitorClient) {
	temp := 104.5
	_, err := client.RecordReading(ctx, &appgrpc.RecordReadingRequest{
		TransformerID: "XFMR-0001",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		TempC:         &temp,
	})
	if err != nil {
		printError(err)
		return
	}
	fmt.Println("Reading accepted")
}

func testListSummaries(ctx context.Context, client *appgrpc.TransformerMonitorClient) {
	resp, err := client.ListSummaries(ctx, &appgrpc.ListSummariesRequest{Sort: "tempC", Order: "desc"})
	if err != nil {
		printError(err)
		return
	}

	fmt.Printf("Found %d transformers:\n", len(resp.Transformers))
	for i, row := range resp.Transformers {
		latest := "n/a"
		if row.LatestTemp != nil {
			latest = fmt.Sprintf("%.1f°C", *row.LatestTemp)
		}
		fmt.Printf("%d. %s (%d kVA): %s, %s\n", i+1, row.ID, row.KVA, latest, row.Status)
	}
}

func testGetTransformerDetail(ctx context.Context, client *appgrpc.TransformerMonitorClient) {
	id := "XFMR-0001"

	resp, err := client.GetTransformerDetail(ctx, &appgrpc.GetTransformerDetailRequest{ID: id, Window: "1w", MaxPoints: 100})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			fmt.Printf("Transformer %s not found\n", id)
			return
		}
		printError(err)
		return
	}

	d := resp.Detail
	fmt.Printf("%s: %d chart points, status %s\n", d.Transformer.ID, len(d.Points), d.Status)
	if d.AvgTemp24h != nil && d.PeakTemp24h != nil {
		fmt.Printf("24h avg %.2f°C, peak %.2f°C\n", *d.AvgTemp24h, *d.PeakTemp24h)
	}
}

func testValidationErrors(ctx context.Context, client *appgrpc.TransformerMonitorClient) {
	// Тест пустого ID
	fmt.Println("Testing empty transformer ID...")
	_, err := client.GetTransformerDetail(ctx, &appgrpc.GetTransformerDetailRequest{})
	if st, ok := status.FromError(err); ok && err != nil {
		fmt.Printf("Expected error: %s (code: %s)\n", st.Message(), st.Code())
	}

	// Тест неизвестного окна
	fmt.Println("Testing unknown time window...")
	_, err = client.GetTransformerDetail(ctx, &appgrpc.GetTransformerDetailRequest{ID: "XFMR-0001", Window: "2y"})
	if st, ok := status.FromError(err); ok && err != nil {
		fmt.Printf("Expected error: %s (code: %s)\n", st.Message(), st.Code())
	}

	// Тест измерения без температуры
	fmt.Println("Testing reading without temperature...")
	_, err = client.RecordReading(ctx, &appgrpc.RecordReadingRequest{TransformerID: "XFMR-0001"})
	if st, ok := status.FromError(err); ok && err != nil {
		fmt.Printf("Expected error: %s (code: %s)\n", st.Message(), st.Code())
	}
}
