package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"community_chat_service/pkg/config"
	"community_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// PprofAddr pprof 只在本機監聽
const PprofAddr = "127.0.0.1:6060"

// StartPprof 非 production 環境才啟動 pprof 監控伺服器
func StartPprof() {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", PprofAddr))
		if err := http.ListenAndServe(PprofAddr, nil); err != nil {
			logger.Log.Warn("pprof server failed", zap.Error(err))
		}
	}()
}

// 常用端點：
// 	•	/debug/pprof/goroutine → 檢查 sweeper / websocket goroutine 是否洩漏
// 	•	/debug/pprof/heap → 顯示記憶體分配
// 	•	/debug/pprof/mutex → room lock 競爭情況
//
// go tool pprof http://127.0.0.1:6060/debug/pprof/goroutine
