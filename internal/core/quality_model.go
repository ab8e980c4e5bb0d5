package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type ParameterResult string

const (
	Conforming    ParameterResult = "conforme"
	NonConforming ParameterResult = "nao_conforme"
)

// AnalysisParameter is one measured parameter of a quality analysis.
type AnalysisParameter struct {
	Name   string           `json:"name"`
	Value  decimal.Decimal  `json:"value"`
	Unit   string           `json:"unit,omitempty"`
	Min    *decimal.Decimal `json:"min,omitempty"`
	Max    *decimal.Decimal `json:"max,omitempty"`
	Result ParameterResult  `json:"result"`
}

// QualityAnalysis is nao_conforme iff any of its parameters is nao_conforme.
type QualityAnalysis struct {
	ID            int                 `json:"id"`
	AnalysisType  string              `json:"analysisType"`
	ReferenceType string              `json:"referenceType,omitempty"`
	ReferenceID   *int                `json:"referenceId,omitempty"`
	Parameters    []AnalysisParameter `json:"parameters"`
	Result        ParameterResult     `json:"result"`
	AnalyzedBy    string              `json:"analyzedBy,omitempty"`
	Observations  string              `json:"observations,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type AnalysisFilter struct {
	ReferenceType string
	Result        ParameterResult
	From          *time.Time
	To            *time.Time
}

// NCStatus is the state of a non-conformity. See ncTransitions for the allowed graph.
type NCStatus string

const (
	NCOpen             NCStatus = "aberta"
	NCInAnalysis       NCStatus = "em_analise"
	NCCorrectiveAction NCStatus = "acao_corretiva"
	NCVerification     NCStatus = "verificacao"
	NCClosed           NCStatus = "fechada"
)

type NCSeverity string

const (
	SeverityLow      NCSeverity = "baixa"
	SeverityMedium   NCSeverity = "media"
	SeverityHigh     NCSeverity = "alta"
	SeverityCritical NCSeverity = "critica"
)

func (s NCSeverity) valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// NonConformity is a recorded deviation tracked through the NC workflow.
type NonConformity struct {
	ID               int        `json:"id"`
	NCNumber         string     `json:"ncNumber"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Severity         NCSeverity `json:"severity"`
	ReferenceType    string     `json:"referenceType,omitempty"`
	ReferenceID      *int       `json:"referenceId,omitempty"`
	AnalysisID       *int       `json:"analysisId,omitempty"`
	Status           NCStatus   `json:"status"`
	AssignedTo       string     `json:"assignedTo,omitempty"`
	RootCause        string     `json:"rootCause,omitempty"`
	CorrectiveAction string     `json:"correctiveAction,omitempty"`
	ClosedAt         *time.Time `json:"closedAt,omitempty"`
	ClosedBy         string     `json:"closedBy,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type NCFilter struct {
	Statuses   []NCStatus
	Severity   NCSeverity
	AnalysisID int
	From       *time.Time
	To         *time.Time
}

// CorrectiveAction documents the root cause and fix recorded when an NC is resolved.
type CorrectiveAction struct {
	ID              int       `json:"id"`
	NonConformityID int       `json:"nonConformityId"`
	RootCause       string    `json:"rootCause"`
	Action          string    `json:"action"`
	Responsible     string    `json:"responsible,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// AnalysisParameterInput uses pointers so a missing value can be told apart from zero.
type AnalysisParameterInput struct {
	Name   string           `json:"name"`
	Value  *decimal.Decimal `json:"value"`
	Unit   string           `json:"unit"`
	Min    *decimal.Decimal `json:"min,omitempty"`
	Max    *decimal.Decimal `json:"max,omitempty"`
	Result ParameterResult  `json:"result"`
}

type CreateAnalysisInput struct {
	AnalysisType  string                   `json:"analysisType"`
	ReferenceType string                   `json:"referenceType"`
	ReferenceID   *int                     `json:"referenceId,omitempty"`
	Parameters    []AnalysisParameterInput `json:"parameters"`
	AnalyzedBy    string                   `json:"analyzedBy"`
	Observations  string                   `json:"observations"`
}

// AnalysisResult is returned by CreateAnalysis. NCID is set when a non-conformity was opened.
type AnalysisResult struct {
	ID     int             `json:"id"`
	Result ParameterResult `json:"result"`
	NCID   *int            `json:"ncId,omitempty"`
}

type CreateNCInput struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Severity      NCSeverity `json:"severity"`
	ReferenceType string     `json:"referenceType"`
	ReferenceID   *int       `json:"referenceId,omitempty"`
	AnalysisID    *int       `json:"analysisId,omitempty"`
}

type ResolveNCInput struct {
	RootCause        string `json:"rootCause"`
	CorrectiveAction string `json:"correctiveAction"`
	Responsible      string `json:"responsible"`
}

// QualityMetrics summarizes analyses and NCs in a period.
type QualityMetrics struct {
	TotalAnalyses     int     `json:"totalAnalyses"`
	ApprovedAnalyses  int     `json:"approvedAnalyses"`
	RejectedAnalyses  int     `json:"rejectedAnalyses"`
	ApprovalRate      float64 `json:"approvalRate"`      // percent, 2 decimals
	OpenNCs           int     `json:"openNCs"`           // aberta + em_analise
	AvgResolutionTime float64 `json:"avgResolutionTime"` // days, 1 decimal
}

type ProducerQualityScore struct {
	ProducerID   int     `json:"producerId"`
	ProducerName string  `json:"producerName"`
	TotalLoads   int     `json:"totalLoads"`
	ClosedLoads  int     `json:"closedLoads"`
	QualityScore float64 `json:"qualityScore"`
	AvgGrade     string  `json:"avgGrade,omitempty"`
}

type GradeDistribution struct {
	A     int `json:"A"`
	B     int `json:"B"`
	C     int `json:"C"`
	D     int `json:"D"`
	Total int `json:"total"`
}
