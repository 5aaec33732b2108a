package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"decision-service/internal/database/minio"
	"decision-service/internal/models"
)

// ATRService generates Approval-to-Repair documents for approved and
// partially approved claims. The template lives in object storage; values
// are filled into ____(key)____ placeholders and the result is uploaded
// next to the claim's evidence.
type ATRService struct {
	minioClient *minio.MinioClient
	templateKey string
}

func NewATRService(minioClient *minio.MinioClient, templateKey string) *ATRService {
	return &ATRService{
		minioClient: minioClient,
		templateKey: templateKey,
	}
}

var placeholderPattern = regexp.MustCompile(`____+\((.*?)\)_+`)

// GenerateForDecision fills the ATR template for a decision and uploads the
// result. Returns the uploaded object key. Only approved and partially
// approved claims get a document.
func (s *ATRService) GenerateForDecision(ctx context.Context, decision *models.ClaimDecision) (string, error) {
	if decision.Status != models.ClaimApproved && decision.Status != models.ClaimPartiallyApproved {
		return "", fmt.Errorf("no ATR document for status %s", decision.Status)
	}

	template, err := s.loadTemplate(ctx)
	if err != nil {
		return "", err
	}

	values := map[string]string{
		"claim_id":           decision.ClaimID.String(),
		"policy_id":          decision.PolicyID.String(),
		"status":             string(decision.Status),
		"claimable_amount":   decision.ClaimableAmount.String(),
		"deductible_applied": decision.DeductibleApplied.String(),
		"issued_at":          time.Now().UTC().Format(time.RFC3339),
		"part_summary":       partSummary(decision.Breakdown),
	}

	filled := FillTemplate(template, values)

	objectKey := fmt.Sprintf("atr/%s/%s.txt", decision.PolicyID, decision.ClaimID)
	if err := s.minioClient.UploadBytes(ctx, minio.Storage.ATRDocuments, objectKey, []byte(filled), "text/plain"); err != nil {
		return "", fmt.Errorf("failed to upload ATR document: %w", err)
	}

	slog.Info("ATR document generated",
		"claim_id", decision.ClaimID,
		"object_key", objectKey,
		"size_bytes", len(filled))

	return objectKey, nil
}

// PresignedURL hands out a temporary download link for an ATR document.
func (s *ATRService) PresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	return s.minioClient.GetPresignedURL(ctx, minio.Storage.ATRDocuments, objectKey, expiry)
}

func (s *ATRService) loadTemplate(ctx context.Context) (string, error) {
	obj, err := s.minioClient.GetFile(ctx, minio.Storage.Templates, s.templateKey)
	if err != nil {
		return "", fmt.Errorf("failed to get ATR template: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("failed to read ATR template: %w", err)
	}

	return string(data), nil
}

// FillTemplate replaces every ____(key)____ placeholder with its value.
// Unknown placeholders are left in place so a bad template is visible in
// the output rather than silently blanked.
func FillTemplate(template string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		if value, ok := values[sub[1]]; ok {
			return value
		}
		return match
	})
}

// ExtractPlaceholders lists the placeholder keys present in a template.
func ExtractPlaceholders(template string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(template, -1)

	placeholders := []string{}
	for _, match := range matches {
		if len(match) > 1 {
			placeholders = append(placeholders, match[1])
		}
	}
	return placeholders
}

func partSummary(breakdown models.PartBreakdown) string {
	lines := make([]string, 0, len(breakdown))
	for _, part := range breakdown {
		if !part.Covered {
			lines = append(lines, fmt.Sprintf("%s: not covered", part.PartName))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: approved %s (tariff %s, depreciation %.0f%%)",
			part.PartName, part.ApprovedAmount, part.TariffCost, part.DepreciationPct))
	}
	return strings.Join(lines, "\n")
}
