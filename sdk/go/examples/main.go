package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"SceneMCP-Agent/sdk/go/scenemcp"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(scenemcp.Job{
				ID:     "job-demo",
				Goal:   "build an obby with 5 platforms",
				Status: "PENDING",
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/jobs/job-demo", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(scenemcp.Job{
			ID:     "job-demo",
			Goal:   "build an obby with 5 platforms",
			Status: "SUCCEEDED",
			Result: &scenemcp.PlanResult{
				Reply:     "Done! Completed all 5 tasks.",
				TaskCount: 5,
				Completed: 5,
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := scenemcp.NewClient(srv.URL, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := client.SubmitGoal(ctx, scenemcp.GoalRequest{Goal: "build an obby with 5 platforms"})
	if err != nil {
		panic(err)
	}
	fmt.Printf("submitted job %s (status=%s)\n", job.ID, job.Status)

	detail, err := client.GetJob(ctx, job.ID)
	if err != nil {
		panic(err)
	}
	fmt.Printf("job %s finished: %s\n", detail.ID, detail.Result.Reply)
}
