// Command mockpredict is a stand-in for the prediction service. It answers
// POST /api/v1/predict with a canned result per disease type.
package main

import (
	"flag"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"docgpt/api/internal/diagnose"
	"docgpt/api/internal/predict"
	"docgpt/api/internal/upload"
)

var canned = map[diagnose.CategoryID]diagnose.Result{
	diagnose.CategoryEye: {
		Prediction:      diagnose.Prediction{Condition: "cataract", Confidence: 0.95, Severity: diagnose.SeverityModerate},
		Recommendations: []string{"Consult ophthalmologist", "Schedule follow-up"},
	},
	diagnose.CategorySkin: {
		Prediction:      diagnose.Prediction{Condition: "benign nevus", Confidence: 0.88, Severity: diagnose.SeverityMild},
		Recommendations: []string{"Monitor for changes in size or color", "Annual dermatology check"},
	},
	diagnose.CategoryPneumonia: {
		Prediction:      diagnose.Prediction{Condition: "bacterial pneumonia", Confidence: 0.91, Severity: diagnose.SeveritySevere},
		Recommendations: []string{"Seek immediate medical attention", "Follow-up chest X-ray in 6 weeks"},
	},
}

func router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = upload.DefaultMaxBytes
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "healthy"}) })
	r.POST(predict.Path, handlePredict)
	return r
}

func handlePredict(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, upload.DefaultMaxBytes+1<<20)

	cat, err := diagnose.ParseCategory(c.PostForm("disease_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	defer f.Close()

	head, _ := io.ReadAll(io.LimitReader(f, 3072))
	if mt := mimetype.Detect(head); !mt.Is("image/png") && !mt.Is("image/jpeg") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"detail": "unsupported file type " + mt.String()})
		return
	}

	res, ok := canned[cat.ID]
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"detail": "no model for " + cat.ID.String()})
		return
	}
	log.WithFields(log.Fields{"disease_type": cat.ID, "file": fh.Filename, "size": fh.Size}).Info("predict")
	c.JSON(http.StatusOK, res)
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	flag.Parse()

	gin.SetMode(gin.ReleaseMode)
	log.Infof("mock predict listening on %s%s", *addr, predict.Path)
	if err := router().Run(*addr); err != nil {
		log.Fatal(err)
	}
}
