package kyc

import "github.com/Footie-RU/footiedrop-engine/internal/models"

// stepAfterUpload returns the pipeline step a record moves to after a
// successful upload of the given document kind. Each kind advances only the
// step tied to itself, so out-of-order uploads cannot skip ahead.
func stepAfterUpload(kind models.DocumentKind) models.KYCStep {
	switch kind {
	case models.DocumentInternationalPassport:
		return models.StepSubmitSchoolID
	case models.DocumentSchoolID:
		return models.StepSubmitSelfie
	case models.DocumentSelfie:
		return models.StepReview
	}
	return models.StepStart
}
