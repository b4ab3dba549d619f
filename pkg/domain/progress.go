package domain

// ProgressEvent はパイプラインが呼び出し元へ送る進捗通知です。
// 1つの実行の中で Progress は単調非減少であることが保証されます。
type ProgressEvent struct {
	Step        string `json:"step"`
	Progress    int    `json:"progress"` // 0..100
	Message     string `json:"message"`
	TotalSteps  int    `json:"totalSteps"`
	CurrentStep int    `json:"currentStep"`
}
