package contracts

// Pipeline Step 정의 (SSOT)
// 모든 로그, 메트릭 라벨, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2          (종목)
//   S0 → S3 → S1 → S2 → S4 (섹터 스파이더)
//   Data  Indicators  Stages  Sector  Gate

// PipelineStep represents a pipeline step
type PipelineStep string

const (
	// StepData S0: 입력 바 검증 및 로딩
	// 위치: internal/s0_data/
	StepData PipelineStep = "S0_DATA"

	// StepIndicators S1: 지표 계산 (EMA, Donchian, Bollinger, Volume, Momentum)
	// 위치: internal/s1_indicators/
	StepIndicators PipelineStep = "S1_INDICATORS"

	// StepStages S2: 9단계 스테이지 분류
	// 위치: internal/s2_stages/
	StepStages PipelineStep = "S2_STAGES"

	// StepSector S3: 섹터 바스켓 합성 시계열
	// 위치: internal/s3_sector/
	StepSector PipelineStep = "S3_SECTOR"

	// StepGate S4: 섹터 게이트 (allow / reduce / block)
	// 위치: internal/s4_gate/
	StepGate PipelineStep = "S4_GATE"
)

// String returns the step name
func (s PipelineStep) String() string {
	return string(s)
}

// ShortName returns abbreviated step name (e.g., "S0", "S1")
func (s PipelineStep) ShortName() string {
	switch s {
	case StepData:
		return "S0"
	case StepIndicators:
		return "S1"
	case StepStages:
		return "S2"
	case StepSector:
		return "S3"
	case StepGate:
		return "S4"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the step
func (s PipelineStep) Description() string {
	switch s {
	case StepData:
		return "입력 데이터 검증"
	case StepIndicators:
		return "지표 계산"
	case StepStages:
		return "스테이지 분류"
	case StepSector:
		return "섹터 합성"
	case StepGate:
		return "섹터 게이트"
	default:
		return "알 수 없음"
	}
}

// AllPipelineSteps returns all pipeline steps in order
func AllPipelineSteps() []PipelineStep {
	return []PipelineStep{StepData, StepIndicators, StepStages, StepSector, StepGate}
}
