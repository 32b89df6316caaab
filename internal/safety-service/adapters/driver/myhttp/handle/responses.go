package handle

import (
	"carpool-safety/internal/safety-service/core/domain/dto"
	"carpool-safety/internal/safety-service/core/domain/model"
)

func toStrikeDto(s model.Strike) dto.StrikeResponseDto {
	return dto.StrikeResponseDto{
		StrikeId:    s.ID,
		DriverId:    s.DriverId,
		TripId:      s.TripId,
		StrikeType:  string(s.StrikeType),
		Reason:      s.Reason,
		Severity:    string(s.Severity),
		ViolationId: s.ViolationId,
		Status:      string(s.Status),
		IssuedAt:    s.IssuedAt,
		ExpiresAt:   s.ExpiresAt,
	}
}

func toStrikeDtos(strikes []model.Strike) []dto.StrikeResponseDto {
	out := make([]dto.StrikeResponseDto, 0, len(strikes))
	for _, s := range strikes {
		out = append(out, toStrikeDto(s))
	}
	return out
}

func toSuspensionDto(s model.Suspension) dto.SuspensionResponseDto {
	return dto.SuspensionResponseDto{
		SuspensionId:   s.ID,
		DriverId:       s.DriverId,
		SuspensionType: string(s.SuspensionType),
		Reason:         s.Reason,
		StrikeIds:      s.StrikeIds,
		Status:         string(s.Status),
		StartedAt:      s.StartedAt,
		ExpiresAt:      s.ExpiresAt,
		LiftedAt:       s.LiftedAt,
		LiftReason:     s.LiftReason,
	}
}

func toSuspensionDtos(suspensions []model.Suspension) []dto.SuspensionResponseDto {
	out := make([]dto.SuspensionResponseDto, 0, len(suspensions))
	for _, s := range suspensions {
		out = append(out, toSuspensionDto(s))
	}
	return out
}

func toAppealDto(a model.Appeal) dto.AppealResponseDto {
	return dto.AppealResponseDto{
		AppealId:     a.ID,
		DriverId:     a.DriverId,
		StrikeId:     a.StrikeId,
		SuspensionId: a.SuspensionId,
		Reason:       a.Reason,
		Evidence:     a.Evidence,
		Status:       string(a.Status),
		SubmittedAt:  a.SubmittedAt,
		ReviewedBy:   a.ReviewedBy,
		ReviewedAt:   a.ReviewedAt,
		Resolution:   a.Resolution,
	}
}

func toAppealDtos(appeals []model.Appeal) []dto.AppealResponseDto {
	out := make([]dto.AppealResponseDto, 0, len(appeals))
	for _, a := range appeals {
		out = append(out, toAppealDto(a))
	}
	return out
}

func toEligibilityDto(e model.Eligibility) dto.EligibilityResponseDto {
	res := dto.EligibilityResponseDto{
		DriverId: e.DriverId,
		Allowed:  e.Allowed,
		Reason:   e.Reason,
	}
	if e.Suspension != nil {
		susp := toSuspensionDto(*e.Suspension)
		res.Suspension = &susp
	}
	return res
}

func toProfileDto(p model.DriverSafetyProfile) dto.SafetyProfileResponseDto {
	return dto.SafetyProfileResponseDto{
		DriverId:             p.DriverId,
		SafetyRating:         p.SafetyRating,
		ActiveStrikes:        p.ActiveStrikes,
		SuspensionStatus:     string(p.SuspensionStatus),
		RouteAdherenceScore:  p.RouteAdherenceScore,
		SpeedComplianceScore: p.SpeedComplianceScore,
		SafeTripsStreak:      p.SafeTripsStreak,
		UpdatedAt:            p.UpdatedAt,
	}
}
