package services

import (
	"context"
	"encoding/json"
	"time"

	"refcore/internal/models"
	"refcore/internal/util"

	"github.com/redis/go-redis/v9"
)

// MaxTeamDepth caps team tree traversal. Deeper chains exist in the graph
// but are truncated in the visualization.
const MaxTeamDepth = 10

const teamTreeCacheTTL = 60 * time.Second

type TeamService struct {
	users UserStore
	vip   VipStore
	cache *redis.Client
}

// NewTeamService builds the team tree service. cache may be nil; trees are
// then rebuilt on every call.
func NewTeamService(users UserStore, vip VipStore, cache *redis.Client) *TeamService {
	return &TeamService{
		users: users,
		vip:   vip,
		cache: cache,
	}
}

// BuildTree reconstructs the referral subtree rooted at the wallet, at most
// MaxTeamDepth levels deep. An unknown root yields (nil, nil). Each level is
// resolved with a single batched children lookup, so sibling reads never
// serialize while levels stay ordered. Children keep the store's insertion
// order.
func (s *TeamService) BuildTree(ctx context.Context, walletAddress string) (*models.TeamNode, error) {
	if cached := s.fromCache(ctx, walletAddress); cached != nil {
		return cached, nil
	}

	root, err := s.users.FindByWallet(ctx, walletAddress)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	nodes := map[int64]*models.TeamNode{}
	rootNode := s.newNode(root)
	nodes[root.Id.Int64] = rootNode

	level := []models.User{*root}
	for depth := 1; depth < MaxTeamDepth && len(level) > 0; depth++ {
		ids := make([]int64, 0, len(level))
		for _, u := range level {
			ids = append(ids, u.Id.Int64)
		}

		children, err := s.users.FindReferralsOf(ctx, ids)
		if err != nil {
			return nil, err
		}

		for i := range children {
			child := &children[i]
			parent, ok := nodes[child.ReferrerId.Int64]
			if !ok {
				// dangling reference, skip the branch
				continue
			}
			node := s.newNode(child)
			nodes[child.Id.Int64] = node
			parent.Children = append(parent.Children, node)
		}

		level = children
	}

	if err := s.markVip(ctx, nodes); err != nil {
		return nil, err
	}

	s.toCache(ctx, walletAddress, rootNode)

	return rootNode, nil
}

func (s *TeamService) newNode(u *models.User) *models.TeamNode {
	return &models.TeamNode{
		Id:       u.WalletAddress,
		Name:     util.ShortAddress(u.WalletAddress),
		Children: make([]*models.TeamNode, 0),
	}
}

func (s *TeamService) markVip(ctx context.Context, nodes map[int64]*models.TeamNode) error {
	ids := make([]int64, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}

	active, err := s.vip.FindActive(ctx, ids)
	if err != nil {
		return err
	}

	for id, node := range nodes {
		node.IsVip = active[id]
	}

	return nil
}

// Cache reads and writes are best effort; a broken cache degrades to a
// rebuild, never to a failed request.
func (s *TeamService) fromCache(ctx context.Context, walletAddress string) *models.TeamNode {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, teamTreeKey(walletAddress)).Bytes()
	if err != nil {
		return nil
	}

	var node models.TeamNode
	if err := json.Unmarshal(raw, &node); err != nil {
		log.Error("Failed to decode cached team tree ", err)
		return nil
	}

	return &node
}

func (s *TeamService) toCache(ctx context.Context, walletAddress string, node *models.TeamNode) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(node)
	if err != nil {
		log.Error("Failed to encode team tree ", err)
		return
	}

	if err := s.cache.Set(ctx, teamTreeKey(walletAddress), raw, teamTreeCacheTTL).Err(); err != nil {
		log.Error("Failed to cache team tree ", err)
	}
}

func teamTreeKey(walletAddress string) string {
	return "team_tree:" + walletAddress
}
