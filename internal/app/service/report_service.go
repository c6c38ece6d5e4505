package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/internal/storage"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	checkoutSheet = "Checkouts"
	summarySheet  = "Summary"

	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var checkoutHeader = []interface{}{
	"ID", "Created", "Customer", "Email", "Phone", "Address", "Items", "Total", "Status",
}

type ReportService interface {
	WriteCheckoutReport(ctx context.Context, w io.Writer) error
	// StoreCheckoutReport writes the workbook to object storage and returns its URL.
	StoreCheckoutReport(ctx context.Context, now time.Time) (string, error)
}

type reportService struct {
	checkoutRepo repository.CheckoutRepository
	files        storage.Storage
}

func NewReportService(checkoutRepo repository.CheckoutRepository, files storage.Storage) ReportService {
	return &reportService{
		checkoutRepo: checkoutRepo,
		files:        files,
	}
}

func describeItems(items []model.CheckoutItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := item.Product.Name
		if name == "" {
			name = fmt.Sprintf("product #%d", item.ProductID)
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

func (s *reportService) buildWorkbook(ctx context.Context) (*excelize.File, error) {
	checkouts, err := s.checkoutRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", checkoutSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(checkoutSheet, "A1", &checkoutHeader); err != nil {
		f.Close()
		return nil, err
	}

	counts := make(map[model.CheckoutStatus]int, len(model.CheckoutStatuses))
	for i, checkout := range checkouts {
		customer := ""
		if checkout.User != nil {
			customer = checkout.User.Name
		}
		row := []interface{}{
			checkout.ID,
			checkout.CreatedAt.Format(time.RFC3339),
			customer,
			checkout.Email,
			checkout.PhoneNumber,
			checkout.Address,
			describeItems(checkout.Items),
			checkout.TotalPrice,
			string(checkout.Status),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(checkoutSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
		counts[checkout.Status]++
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	f.SetSheetRow(summarySheet, "A1", &[]interface{}{"Status", "Count"})
	for i, status := range model.CheckoutStatuses {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		f.SetSheetRow(summarySheet, cell, &[]interface{}{string(status), counts[status]})
	}
	totalCell, _ := excelize.CoordinatesToCellName(1, len(model.CheckoutStatuses)+2)
	f.SetSheetRow(summarySheet, totalCell, &[]interface{}{"Total", len(checkouts)})

	return f, nil
}

func (s *reportService) WriteCheckoutReport(ctx context.Context, w io.Writer) error {
	f, err := s.buildWorkbook(ctx)
	if err != nil {
		logger.Error("Failed to build checkout report", err)
		return err
	}
	defer f.Close()

	return f.Write(w)
}

func (s *reportService) StoreCheckoutReport(ctx context.Context, now time.Time) (string, error) {
	if s.files == nil {
		return "", fmt.Errorf("report storage is not configured")
	}

	var buf bytes.Buffer
	if err := s.WriteCheckoutReport(ctx, &buf); err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/checkouts-%s.xlsx", now.Format("20060102-150405"))
	size := int64(buf.Len())
	url, err := s.files.Put(ctx, key, &buf, size, XLSXContentType)
	if err != nil {
		return "", err
	}

	logger.Info("Checkout report stored", map[string]interface{}{
		"key":   key,
		"bytes": size,
	})
	return url, nil
}
