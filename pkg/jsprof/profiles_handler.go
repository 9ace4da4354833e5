package jsprof

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	pprofProfile "github.com/google/pprof/profile"
	"github.com/profefe/jsprof/pkg/cpuprofile"
	"github.com/profefe/jsprof/pkg/log"
	"github.com/profefe/jsprof/pkg/pprofutil"
	"github.com/profefe/jsprof/pkg/profile"
	"github.com/profefe/jsprof/pkg/storage"
	"golang.org/x/xerrors"
)

type ProfilesHandler struct {
	logger    *log.Logger
	collector *Collector
	querier   *Querier
}

func NewProfilesHandler(logger *log.Logger, collector *Collector, querier *Querier) *ProfilesHandler {
	return &ProfilesHandler{
		logger:    logger,
		collector: collector,
		querier:   querier,
	}
}

type profileHandlerFunc func(w http.ResponseWriter, r *http.Request, pid profile.ID, args []string) error

func (h *ProfilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		handler func(http.ResponseWriter, *http.Request) error
		urlPath = path.Clean(r.URL.Path)
	)

	if urlPath == apiProfilesPath {
		switch r.Method {
		case http.MethodPost:
			handler = h.HandleCreateProfile
		case http.MethodGet:
			handler = h.HandleFindProfiles
		}
	} else if strings.HasPrefix(urlPath, apiProfilesPath+"/") && r.Method == http.MethodGet {
		// {id}[/{action}[/{args}...]]
		parts := strings.Split(urlPath[len(apiProfilesPath)+1:], "/")
		if fn := h.profileAction(parts); fn != nil {
			handler = func(w http.ResponseWriter, r *http.Request) error {
				pid, err := profile.IDFromString(parts[0])
				if err != nil {
					return StatusError(http.StatusBadRequest, fmt.Sprintf("bad profile id %q", parts[0]), err)
				}
				return fn(w, r, pid, parts[1:])
			}
		}
	}

	var err error
	if handler != nil {
		err = handler(w, r)
	} else {
		err = ErrNotFound
	}
	HandleErrorHTTP(h.logger, err, w, r)
}

func (h *ProfilesHandler) profileAction(parts []string) profileHandlerFunc {
	if len(parts) == 1 {
		return h.HandleGetProfile
	}

	switch action := parts[1]; {
	case action == "tracetops" && len(parts) == 2:
		return h.HandleTraceTops
	case action == "callers" && len(parts) == 3:
		return h.HandleCallers
	case action == "frames" && len(parts) == 2:
		return h.HandleFrames
	case action == "tree" && len(parts) == 2:
		return h.HandleTree
	case action == "pprof" && len(parts) == 2:
		return h.HandlePprof
	}
	return nil
}

func (h *ProfilesHandler) HandleCreateProfile(w http.ResponseWriter, r *http.Request) error {
	params := &storage.WriteProfileParams{}
	if err := parseWriteProfileParams(params, r); err != nil {
		return err
	}

	profModel, err := h.collector.WriteProfile(r.Context(), params, r.Body)
	if err != nil {
		return xerrors.Errorf("could not create profile: %w", err)
	}

	ReplyJSON(w, profModel)

	return nil
}

func (h *ProfilesHandler) HandleFindProfiles(w http.ResponseWriter, r *http.Request) error {
	params := &storage.FindProfilesParams{}
	if err := parseFindProfileParams(params, r); err != nil {
		return err
	}

	profModels, err := h.querier.FindProfiles(r.Context(), params)
	if err != nil {
		return err
	}

	ReplyJSON(w, profModels)

	return nil
}

// HandleGetProfile replies with the profile payload as it was uploaded.
func (h *ProfilesHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request, pid profile.ID, _ []string) error {
	rc, meta, err := h.querier.OpenProfile(r.Context(), pid)
	if err != nil {
		return xerrors.Errorf("could not open profile by id %v: %w", pid, err)
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s.json"`, pid, meta.Type))

	_, err = io.Copy(w, rc)
	return err
}

func (h *ProfilesHandler) HandleTraceTops(w http.ResponseWriter, r *http.Request, pid profile.ID, _ []string) error {
	m, _, err := h.querier.AllocationModel(r.Context(), pid)
	if err != nil {
		return xerrors.Errorf("could not get model of profile %v: %w", pid, err)
	}

	ReplyJSON(w, m.SerializeTraceTops())

	return nil
}

func (h *ProfilesHandler) HandleCallers(w http.ResponseWriter, r *http.Request, pid profile.ID, args []string) error {
	nodeID, err := strconv.Atoi(args[1])
	if err != nil {
		return StatusError(http.StatusBadRequest, fmt.Sprintf("bad node id %q", args[1]), err)
	}

	m, _, err := h.querier.AllocationModel(r.Context(), pid)
	if err != nil {
		return xerrors.Errorf("could not get model of profile %v: %w", pid, err)
	}

	callers, err := m.SerializeCallers(nodeID)
	if err != nil {
		return err
	}

	ReplyJSON(w, callers)

	return nil
}

func (h *ProfilesHandler) HandleFrames(w http.ResponseWriter, r *http.Request, pid profile.ID, _ []string) error {
	win, err := parseFramesWindow(r)
	if err != nil {
		return err
	}

	m, _, err := h.querier.CPUModel(r.Context(), pid)
	if err != nil {
		return xerrors.Errorf("could not get model of profile %v: %w", pid, err)
	}

	frames := make([]Frame, 0)
	m.ForEachFrame(nil, func(depth int, n *cpuprofile.Node, startTime, duration, selfTime float64) {
		frames = append(frames, frameFromNode(depth, n, startTime, duration, selfTime))
	}, win.from, win.to)

	ReplyJSON(w, frames)

	return nil
}

func (h *ProfilesHandler) HandleTree(w http.ResponseWriter, r *http.Request, pid profile.ID, _ []string) error {
	m, _, err := h.querier.CPUModel(r.Context(), pid)
	if err != nil {
		return xerrors.Errorf("could not get model of profile %v: %w", pid, err)
	}

	ReplyJSON(w, NewCPUTree(m))

	return nil
}

// HandlePprof replies with the profile converted to gzipped pprof.
func (h *ProfilesHandler) HandlePprof(w http.ResponseWriter, r *http.Request, pid profile.ID, _ []string) error {
	pm, err := h.querier.GetModel(r.Context(), pid)
	if err != nil {
		return xerrors.Errorf("could not get model of profile %v: %w", pid, err)
	}

	var pp *pprofProfile.Profile
	switch {
	case pm.CPU != nil:
		pp, err = pprofutil.CPUProfileToPprof(pm.CPU)
	case pm.Allocation != nil:
		pp, err = pprofutil.AllocationProfileToPprof(pm.Allocation)
	}
	if err != nil {
		return xerrors.Errorf("could not convert profile %v to pprof: %w", pid, err)
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s.pb.gz"`, pid, pm.Meta.Type))

	return pp.Write(w)
}
