package types

import "time"

// Task status constants, in pipeline order
const (
	StatusPending                       = "PENDING"
	StatusDownloading                   = "DOWNLOADING"
	StatusDownloaded                    = "DOWNLOADED"
	StatusNoiseReduction                = "NOISE_REDUCTION"
	StatusNoiseReductionComplete        = "NOISE_REDUCTION_COMPLETE"
	StatusNoiseReductionFailed          = "NOISE_REDUCTION_FAILED"
	StatusGettingMetadata               = "GETTING_METADATA"
	StatusMetadataComplete              = "METADATA_COMPLETE"
	StatusTranscribing                  = "TRANSCRIBING"
	StatusTranscriptionComplete         = "TRANSCRIPTION_COMPLETE"
	StatusSavingSRT                     = "SAVING_SRT"
	StatusSRTSaved                      = "SRT_SAVED"
	StatusDetectingSilence              = "DETECTING_SILENCE"
	StatusSilenceDetectionComplete      = "SILENCE_DETECTION_COMPLETE"
	StatusClassifyingContent            = "CLASSIFYING_CONTENT"
	StatusContentClassificationComplete = "CONTENT_CLASSIFICATION_COMPLETE"
	StatusClassifyingSilence            = "CLASSIFYING_SILENCE"
	StatusSilenceClassificationComplete = "SILENCE_CLASSIFICATION_COMPLETE"
	StatusDetectingFillerWords          = "DETECTING_FILLER_WORDS"
	StatusFillerWordDetectionComplete   = "FILLER_WORD_DETECTION_COMPLETE"
	StatusDetectingRetakes              = "DETECTING_RETAKES"
	StatusRetakeDetectionComplete       = "RETAKE_DETECTION_COMPLETE"
	StatusSuggestingBRoll               = "SUGGESTING_B_ROLL"
	StatusBRollSuggestionComplete       = "B_ROLL_SUGGESTION_COMPLETE"
	StatusPreparingCuts                 = "PREPARING_CUTS"
	StatusCuttingVideo                  = "CUTTING_VIDEO"
	StatusExportingTimeline             = "EXPORTING_TIMELINE"
	StatusTimelineExported              = "TIMELINE_EXPORTED"
	StatusRetranscribing                = "RETRANSCRIBING_TRIMMED_VIDEO"
	StatusBurningCaptions               = "BURNING_CAPTIONS"
	StatusPublishingResults             = "PUBLISHING_RESULTS"
	StatusCompleted                     = "COMPLETED"
	StatusFailed                        = "FAILED"
)

// StageProgress maps each status to the progress value reported with it.
// Values never decrease along the pipeline order.
var StageProgress = map[string]int{
	StatusPending:                       0,
	StatusDownloading:                   10,
	StatusDownloaded:                    20,
	StatusNoiseReduction:                30,
	StatusNoiseReductionComplete:        40,
	StatusNoiseReductionFailed:          40,
	StatusGettingMetadata:               45,
	StatusMetadataComplete:              50,
	StatusTranscribing:                  60,
	StatusTranscriptionComplete:         70,
	StatusSavingSRT:                     75,
	StatusSRTSaved:                      80,
	StatusDetectingSilence:              85,
	StatusSilenceDetectionComplete:      90,
	StatusClassifyingContent:            92,
	StatusContentClassificationComplete: 94,
	StatusClassifyingSilence:            96,
	StatusSilenceClassificationComplete: 98,
	StatusDetectingFillerWords:          99,
	StatusFillerWordDetectionComplete:   99,
	StatusDetectingRetakes:              99,
	StatusRetakeDetectionComplete:       99,
	StatusSuggestingBRoll:               99,
	StatusBRollSuggestionComplete:       99,
	StatusPreparingCuts:                 99,
	StatusCuttingVideo:                  99,
	StatusExportingTimeline:             99,
	StatusTimelineExported:              99,
	StatusRetranscribing:                99,
	StatusBurningCaptions:               99,
	StatusPublishingResults:             99,
	StatusCompleted:                     100,
}

// IsTerminal reports whether no further transitions follow the status.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

// Silence labels produced by classification
const (
	SilencePause       = "pause"
	SilenceDeadAir     = "dead air"
	SilenceSceneChange = "scene change"
	SilenceUnknown     = "unknown"
)

// Task is the record observers read to learn a task's status
type Task struct {
	ID        string    `json:"task_id"`
	VideoURL  string    `json:"video_url,omitempty"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Result is attached to a task once it completes
type Result struct {
	SRTPath               string            `json:"srt_path,omitempty"`
	FinalVideoPath        string            `json:"final_video_path"`
	Classification        *Classification   `json:"classification"`
	SilenceIntervals      []ClassifiedSpan  `json:"silence_intervals"`
	FillerWords           []FillerWord      `json:"filler_words"`
	AvailableAspectRatios []string          `json:"available_aspect_ratios"`
	KeepSegments          []TimeSpan        `json:"keep_segments"`
	EverythingRemoved     bool              `json:"everything_removed,omitempty"`
	Retakes               []Retake          `json:"retakes"`
	BRollSuggestions      []BRollSuggestion `json:"b_roll_suggestions"`
	TimelinePath          string            `json:"timeline_path,omitempty"`
	Metadata              *VideoMetadata    `json:"metadata,omitempty"`
	GDriveURL             string            `json:"gdrive_url,omitempty"`
}

// VideoMetadata describes the probed source video
type VideoMetadata struct {
	Width       int        `json:"width"`
	Height      int        `json:"height"`
	AspectRatio string     `json:"aspect_ratio"`
	Duration    float64    `json:"duration"`
	FrameRate   float64    `json:"frame_rate"`
	Audio       *AudioInfo `json:"audio,omitempty"`
}

// AudioInfo describes the first audio stream
type AudioInfo struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
}

// Classification is the content type judgment for a transcript
type Classification struct {
	Type   string  `json:"type"`
	Topic  string  `json:"topic,omitempty"`
	Topics []Topic `json:"topics,omitempty"`
}

// Topic marks where a podcast topic starts
type Topic struct {
	Timestamp string `json:"timestamp"`
	Topic     string `json:"topic"`
}

// Word is one word of a word-level transcript
type Word struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// BRollSuggestion proposes illustrative footage at a transcript moment
type BRollSuggestion struct {
	Timestamp  string `json:"timestamp"`
	Suggestion string `json:"suggestion"`
}
