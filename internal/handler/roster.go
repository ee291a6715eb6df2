package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dutyops-dev/duty-roster/backend/internal/domain"
	"github.com/dutyops-dev/duty-roster/backend/internal/export"
	"github.com/dutyops-dev/duty-roster/backend/internal/scheduler"
	"github.com/dutyops-dev/duty-roster/backend/internal/utils"
)

type generateRosterRequest struct {
	Engineers   []string `json:"engineers" validate:"required"`
	Weeks       int      `json:"weeks" validate:"required,min=1"`
	StartSunday string   `json:"startSunday" validate:"omitempty,datetime=2006-01-02"`
	Seeds       struct {
		Weekend      int `json:"weekend" validate:"min=0"`
		Chat         int `json:"chat" validate:"min=0"`
		OnCall       int `json:"oncall" validate:"min=0"`
		Appointments int `json:"appointments" validate:"min=0"`
		Early        int `json:"early" validate:"min=0"`
	} `json:"seeds"`
	Leave []struct {
		Engineer string `json:"engineer" validate:"required"`
		Date     string `json:"date" validate:"required,datetime=2006-01-02"`
		Reason   string `json:"reason"`
	} `json:"leave" validate:"dive"`
	Options struct {
		EarlyOnWeekends          bool   `json:"earlyOnWeekends"`
		FairnessWeightedWeekends bool   `json:"fairnessWeightedWeekends"`
		Store                    bool   `json:"store"`
		Name                     string `json:"name"`
		Format                   string `json:"format" validate:"omitempty,oneof=json csv xlsx"`
	} `json:"options"`
}

// configHash 请求的规范化摘要，同样的请求会得到同样的散列
func configHash(req *generateRosterRequest) string {
	canonical, err := json.Marshal(req)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:12]
}

// previousSunday 返回不晚于 t 的最近一个周日
func previousSunday(t time.Time) time.Time {
	return t.AddDate(0, 0, -int(t.Weekday()))
}

func (h *Handler) GenerateRoster(w http.ResponseWriter, r *http.Request) {
	var req generateRosterRequest

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	username := actingUsername(r)
	format, err := export.ParseFormat(req.Options.Format)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	// 姓名卫生检查，通过后用归一化的写法继续排班
	if h.config.Features.AdvancedValidation {
		hygiene := utils.ValidateEngineerNames(req.Engineers)
		if !hygiene.Valid {
			h.failResponse(w, r, "名册校验未通过", hygiene)
			return
		}
		if len(hygiene.Warnings) > 0 {
			slog.Info("名册校验有提醒", "request_id", shortRequestID(r), "warnings", len(hygiene.Warnings))
		}
		req.Engineers = hygiene.NormalizedNames

		// 请假记录同样归一化；指向名册外的人时给出接近的候选便于纠错
		rosterSet := make(map[string]bool, len(req.Engineers))
		for _, name := range req.Engineers {
			rosterSet[name] = true
		}
		for i := range req.Leave {
			req.Leave[i].Engineer = utils.NormalizeName(req.Leave[i].Engineer)
			if !rosterSet[req.Leave[i].Engineer] {
				h.failResponse(w, r, fmt.Sprintf("请假记录中的 %s 不在名册中", req.Leave[i].Engineer), map[string]any{
					"field":       "leave",
					"engineer":    req.Leave[i].Engineer,
					"suggestions": utils.SuggestNames(req.Leave[i].Engineer, req.Engineers),
				})
				return
			}
		}
	}

	startSunday := previousSunday(time.Now())
	if req.StartSunday != "" {
		startSunday, _ = time.Parse(time.DateOnly, req.StartSunday)
	}

	leave := make([]scheduler.LeaveRecord, 0, len(req.Leave))
	for _, rec := range req.Leave {
		date, _ := time.Parse(time.DateOnly, rec.Date)
		leave = append(leave, scheduler.LeaveRecord{
			Engineer: rec.Engineer,
			Date:     date,
			Reason:   rec.Reason,
		})
	}

	params := &scheduler.Parameters{
		Engineers:   req.Engineers,
		StartSunday: startSunday,
		Weeks:       req.Weeks,
		Seeds: scheduler.Seeds{
			Weekend:      req.Seeds.Weekend,
			Chat:         req.Seeds.Chat,
			OnCall:       req.Seeds.OnCall,
			Appointments: req.Seeds.Appointments,
			Early:        req.Seeds.Early,
		},
		Leave:                    leave,
		EarlyOnWeekends:          req.Options.EarlyOnWeekends,
		FairnessWeightedWeekends: req.Options.FairnessWeightedWeekends,

		MinRosterSize:      h.config.Scheduler.MinRosterSize,
		MaxRosterSize:      h.config.Scheduler.MaxRosterSize,
		MaxWeeks:           h.config.Scheduler.MaxWeeks,
		OutlierThreshold:   h.config.Scheduler.OutlierThreshold,
		MinWeekdayCoverage: h.config.Scheduler.MinWeekdayCoverage,
		MinWeekendCoverage: h.config.Scheduler.MinWeekendCoverage,
	}

	s, err := scheduler.New(params)
	if err != nil {
		var cfgErr *scheduler.ConfigurationError
		if errors.As(err, &cfgErr) {
			h.generationFailures.Add(1)
			h.audit.LogScheduleGeneration(username, len(req.Engineers), req.Weeks, string(format), false, cfgErr.Error(), clientIP(r))
			h.failResponse(w, r, cfgErr.Message, map[string]string{"field": cfgErr.Field})
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	result, err := s.Generate()
	if err != nil {
		h.generationFailures.Add(1)
		h.audit.LogScheduleGeneration(username, len(req.Engineers), req.Weeks, string(format), false, err.Error(), clientIP(r))
		h.internalServerError(w, r, err)
		return
	}

	// 功能开关控制对外暴露哪些附加产出
	if !h.config.Features.FairnessReporting {
		result.FairnessReport = nil
		result.FairnessInsights = nil
	}
	if !h.config.Features.DecisionLogging {
		result.DecisionLog = nil
	}
	if !h.config.Features.InvariantChecking {
		result.Violations = nil
	}

	manager := export.NewManager(result)
	payload, err := manager.Export(format)
	if err != nil {
		h.generationFailures.Add(1)
		h.audit.LogScheduleGeneration(username, len(req.Engineers), req.Weeks, string(format), false, err.Error(), clientIP(r))
		h.internalServerError(w, r, err)
		return
	}

	h.generations.Add(1)
	h.audit.LogScheduleGeneration(username, len(req.Engineers), req.Weeks, string(format), true, "", clientIP(r))

	var artifact *domain.RosterArtifact
	if req.Options.Store && h.config.Features.ArtifactStorage {
		artifact, err = h.storeArtifact(r, &req, result, format, payload, username)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	filename := manager.Filename(format, req.Options.Name)

	if format == export.FormatJSON {
		data := map[string]any{"document": json.RawMessage(payload), "filename": filename}
		if artifact != nil {
			data["artifactID"] = artifact.ID
		}
		h.successResponse(w, r, "排班生成成功", data)
		return
	}

	// CSV / XLSX 以附件返回，元信息放在响应头里
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Schedule-Engineer-Count", strconv.Itoa(result.Metadata.EngineerCount))
	w.Header().Set("X-Schedule-Weeks", strconv.Itoa(result.Metadata.Weeks))
	w.Header().Set("X-Schedule-Start-Date", result.Metadata.StartDate.Format(time.DateOnly))
	if result.FairnessReport != nil {
		w.Header().Set("X-Schedule-Equity-Score", strconv.FormatFloat(result.FairnessReport.EquityScore, 'f', 4, 64))
	}
	if artifact != nil {
		w.Header().Set("X-Artifact-ID", artifact.ID.String())
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		h.logInternalServerError(r, err)
	}
}

// storeArtifact 把导出的产物连同元信息落库，并尽力通知创建者
func (h *Handler) storeArtifact(r *http.Request, req *generateRosterRequest, result *scheduler.Result, format export.Format, payload []byte, username string) (*domain.RosterArtifact, error) {
	name := req.Options.Name
	if name == "" {
		name = export.NewManager(result).Filename(format, "")
	}

	artifact := &domain.RosterArtifact{
		ID:            uuid.New(),
		Name:          name,
		Format:        string(format),
		CreatedBy:     username,
		Size:          int64(len(payload)),
		ConfigHash:    configHash(req),
		EngineerCount: result.Metadata.EngineerCount,
		Weeks:         result.Metadata.Weeks,
		StartDate:     result.Metadata.StartDate,
		Data:          payload,
	}
	if result.FairnessReport != nil {
		artifact.EquityScore = result.FairnessReport.EquityScore
	}
	if result.Violations != nil {
		artifact.ViolationCount = result.Violations.Total
	}

	if err := h.repository.InsertRosterArtifact(artifact); err != nil {
		h.audit.LogArtifactAccess(username, artifact.ID.String(), "created", false, err.Error(), clientIP(r))
		return nil, err
	}

	h.artifactsStored.Add(1)
	h.audit.LogArtifactAccess(username, artifact.ID.String(), "created", true, "", clientIP(r))
	h.notifyRosterPublished(r, artifact, result)

	return artifact, nil
}

// notifyRosterPublished 给创建者发排班已发布的邮件。失败只记日志，不影响请求
func (h *Handler) notifyRosterPublished(r *http.Request, artifact *domain.RosterArtifact, result *scheduler.Result) {
	subString, ok := r.Context().Value(SubCtxKey).(string)
	if !ok {
		return
	}
	sub, err := strconv.ParseInt(subString, 10, 64)
	if err != nil || sub == 0 {
		return
	}

	user, err := h.repository.GetUserByID(sub)
	if err != nil {
		slog.Warn("查询产物创建者失败，跳过通知", "request_id", shortRequestID(r), "error", err)
		return
	}

	equityScore := 0.0
	if result.FairnessReport != nil {
		equityScore = result.FairnessReport.EquityScore
	}

	mailMessage := domain.MailMessage{
		Type: domain.MailTypeRosterPublished,
		To:   user.Email,
		Data: domain.RosterPublishedMailData{
			FullName:      user.FullName,
			ArtifactName:  artifact.Name,
			EngineerCount: artifact.EngineerCount,
			Weeks:         artifact.Weeks,
			EquityScore:   equityScore,
		},
	}

	if err := h.publishMail(mailMessage); err != nil {
		slog.Warn("排班发布通知投递失败", "request_id", shortRequestID(r), "error", err)
	}
}
